package main

import (
	"github.com/davazp/iredb/effects/storage"
	"github.com/davazp/iredb/serial"
	"github.com/davazp/iredb/store"
	"github.com/spf13/cobra"
)

func newGetCmd(open func(*cobra.Command) (*runtime, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Long: `Print the value stored under key. Binary values are written as they are,
structured values as canonical JSON. An out:<input key> prints the memoized
output the record points to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			v, err := storage.EffectFetchValue(rt.ctx, store.Key(args[0]))
			if err != nil {
				return err
			}
			raw, tag := serial.Serialize(v)
			if tag == serial.TagJSON {
				raw = append(raw, '\n')
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}
