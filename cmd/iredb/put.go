package main

import (
	"fmt"
	"io"
	"os"

	"github.com/davazp/iredb/effects/storage"
	"github.com/davazp/iredb/serial"
	"github.com/davazp/iredb/value"
	"github.com/spf13/cobra"
)

func newPutCmd(open func(*cobra.Command) (*runtime, error)) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "put [file]",
		Short: "Store a file (or stdin) and print its key",
		Long: `Store the contents of file, or of standard input when no file is given,
and print the key it is stored under.

With --json the input is parsed as JSON and stored in canonical form, so
documents that differ only in key order or whitespace share a key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var v value.Value = value.Binary(raw)
			if asJSON {
				j, err := serial.Parse(raw)
				if err != nil {
					return err
				}
				v = value.NewStructured(j)
			}

			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			key, err := storage.EffectStoreValue(rt.ctx, v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "parse the input as JSON and store it canonically")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
