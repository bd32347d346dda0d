package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/meter/pkg/cli"
	"mercator-hq/meter/pkg/config"
	"mercator-hq/meter/pkg/monitor"
	"mercator-hq/meter/pkg/server"
	"mercator-hq/meter/pkg/telemetry/tracing"

	"github.com/spf13/cobra"
)

var runFlags struct {
	listenAddress string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Mercator Meter server",
	Long: `Start the metrics, health and usage report server.

The memory sampler and report generator start with the server and stop when it
receives SIGINT or SIGTERM.

Examples:
  # Start with default config
  meter run

  # Start with custom config
  meter run --config /etc/meter/config.yaml

  # Override listen address
  meter run --listen 0.0.0.0:9090

  # Validate config without starting server
  meter run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
		if err := config.Validate(cfg); err != nil {
			return cli.NewConfigError(cfgFile, err)
		}
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	tracer, err := tracing.New(ctx, cfg.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	mon, err := monitor.New(cfg,
		monitor.WithLogger(logger),
		monitor.WithTracer(tracer),
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if err := mon.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := mon.Shutdown(shutdownCtx); err != nil {
			logger.Error("monitor shutdown failed", "error", err)
		}
	}()

	logger.Info("starting Mercator Meter",
		"version", Version,
		"environment", cfg.Environment,
		"listen_address", cfg.Server.ListenAddress,
		"memory_interval", cfg.Sampler.MemoryInterval,
		"report_interval", cfg.Sampler.ReportInterval,
		slog.Int("limits", mon.Limits().Len()),
		slog.Bool("tracing", tracer.Enabled()),
	)

	srv := server.NewServer(cfg, mon, versionInfo(), logger)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
