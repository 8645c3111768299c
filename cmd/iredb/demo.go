package main

import (
	"context"
	"fmt"
	"time"

	"github.com/davazp/iredb/effects/log"
	"github.com/davazp/iredb/effects/task"
	"github.com/davazp/iredb/memo"
	"github.com/spf13/cobra"
)

type sumInput struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// pipeline squares two numbers concurrently and adds the squares. Both steps
// are memoized, so running it twice with the same numbers computes nothing.
type pipeline struct {
	square *memo.Computation[string, int, int]
	sum    *memo.Computation[string, sumInput, int]
}

func newPipeline(delay time.Duration) pipeline {
	return pipeline{
		square: memo.Bind("squarev1", func(ctx context.Context, x int, _ string) (int, error) {
			log.Effect(ctx, log.LogInfo, "computing square", map[string]any{"x": x})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			return x * x, nil
		}),
		sum: memo.Bind("sumv1", func(ctx context.Context, in sumInput, _ string) (int, error) {
			log.Effect(ctx, log.LogInfo, "computing sum", map[string]any{"x": in.X, "y": in.Y})
			return in.X + in.Y, nil
		}),
	}
}

func (p pipeline) run(ctx context.Context, a, b int) (int, error) {
	sa, sb := p.square.Call(ctx, a), p.square.Call(ctx, b)
	x, err := task.Await(sa)
	if err != nil {
		return 0, err
	}
	y, err := task.Await(sb)
	if err != nil {
		return 0, err
	}
	return p.sum.Do(ctx, sumInput{X: x, Y: y})
}

func newDemoCmd(open func(*cobra.Command) (*runtime, error)) *cobra.Command {
	var (
		a, b  int
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the memoized square/sum pipeline",
		Long: `Compute a*a + b*b with both squares running concurrently. Every step is
memoized in the store: a second run with the same numbers returns at once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			start := time.Now()
			total, err := newPipeline(delay).run(rt.ctx, a, b)
			if err != nil {
				return err
			}
			log.Effect(rt.ctx, log.LogInfo, "pipeline finished", map[string]any{"elapsed": time.Since(start).String()})
			_, err = fmt.Fprintln(cmd.OutOrStdout(), total)
			return err
		},
	}
	cmd.Flags().IntVar(&a, "a", 10, "first number")
	cmd.Flags().IntVar(&b, "b", 20, "second number")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "time each square takes to compute")
	return cmd
}
