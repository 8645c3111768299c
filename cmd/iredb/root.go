package main

import (
	"context"
	"fmt"

	"github.com/davazp/iredb/config"
	"github.com/davazp/iredb/effects/log"
	"github.com/davazp/iredb/memo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime is what every subcommand runs under: a context carrying the log,
// task and storage handlers over the configured store.
type runtime struct {
	ctx   context.Context
	close func()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "iredb",
		Short: "Content-addressed value store with memoized computations",
		Long: `iredb stores values under keys derived from their content and
remembers the outputs of computations keyed by their configuration and input.

Keys look like <sha256 hex>-<binary|json>; memoized outputs are reachable
through out:<input key>.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")

	open := func(cmd *cobra.Command) (*runtime, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return openRuntime(cmd.Context(), cfg)
	}

	rootCmd.AddCommand(
		newPutCmd(open),
		newGetCmd(open),
		newDemoCmd(open),
	)
	return rootCmd
}

func openRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	restoreGlobals := zap.ReplaceGlobals(logger)

	st, err := cfg.OpenStore(logger)
	if err != nil {
		restoreGlobals()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	ctx, endOfLogHandler := log.WithZapEffectHandler(ctx, cfg.Effects.BufferSize, logger)
	ctx, endOfMemoHandlers := memo.WithEffectHandlers(ctx, cfg.Effects, st)

	return &runtime{
		ctx: ctx,
		close: func() {
			endOfMemoHandlers()
			endOfLogHandler()
			if err := st.Close(); err != nil {
				logger.Warn("closing store", zap.Error(err))
			}
			restoreGlobals()
		},
	}, nil
}
