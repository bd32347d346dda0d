package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration file, apply environment overrides and validate it.

All problems are reported together; the command exits with status 2 when the
configuration is invalid.

Examples:
  # Validate a configuration file
  meter validate --config config.yaml

  # Validate defaults plus MERCATOR_METER_* environment variables
  meter validate`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  Environment:     %s\n", cfg.Environment)
	fmt.Fprintf(out, "  Listen address:  %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "  Memory interval: %s\n", cfg.Sampler.MemoryInterval)
	fmt.Fprintf(out, "  Report interval: %s\n", cfg.Sampler.ReportInterval)
	fmt.Fprintf(out, "  Limits:          %d\n", len(cfg.Limits.Values))
	return nil
}
