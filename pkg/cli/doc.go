/*
Package cli provides command-line interface utilities for Mercator Meter.

The cli package includes output formatters, error types and signal helpers
used by the meter command.

Output Formatting:

Command results can be printed as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, usageReport); err != nil {
		return err
	}

CSV output requires the value to implement Recorder.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
