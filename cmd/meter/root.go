package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/meter/pkg/cli"
	"mercator-hq/meter/pkg/config"
	"mercator-hq/meter/pkg/telemetry/logging"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "meter",
	Short: "Mercator Meter - resource usage monitoring",
	Long: `Mercator Meter tracks the consumption of constrained resources (query bytes,
AI tokens, cache items, API calls), raises warning and critical signals as usage
approaches configured limits, and exposes:
  - Prometheus text metrics
  - Liveness, readiness and version endpoints
  - Periodic usage reports with process memory and top resources`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig reads the configuration named by --config with environment
// overrides applied. Failures are reported as *cli.ConfigError.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg and installs it as the slog
// default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg.Logging)
	lc.Writer = w

	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
