package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/meter/pkg/cli"
	"mercator-hq/meter/pkg/config"
	"mercator-hq/meter/pkg/monitor"
	"mercator-hq/meter/pkg/report"
	"mercator-hq/meter/pkg/telemetry/tracing"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

var reportFlags struct {
	format  string
	url     string
	topN    int
	timeout time.Duration
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a usage report",
	Long: `Print a usage report as text, JSON or CSV.

With --url the latest report of a running server is fetched from its report
endpoint. Without it a report of this process is built on the spot, which
is mostly useful to check the output format.

Examples:
  # Latest report of a local server as JSON
  meter report --url http://127.0.0.1:9090 --format json

  # Top 5 resources as CSV
  meter report --url http://127.0.0.1:9090 --format csv --top 5`,
	Args: cobra.NoArgs,
	RunE: printReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportFlags.format, "format", "f", "text", "output format: text, json, csv")
	reportCmd.Flags().StringVar(&reportFlags.url, "url", "", "base URL of a running meter server")
	reportCmd.Flags().IntVar(&reportFlags.topN, "top", 0, "limit the number of resources (0 keeps the report's)")
	reportCmd.Flags().DurationVar(&reportFlags.timeout, "timeout", 10*time.Second, "request timeout when --url is set")
}

func printReport(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(reportFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var rep *report.UsageReport
	if reportFlags.url != "" {
		rep, err = fetchReport(cmd.Context(), cfg, reportFlags.url+cfg.Report.Path, reportFlags.timeout)
	} else {
		rep, err = localReport(cmd.Context(), cfg)
	}
	if err != nil {
		return cli.NewCommandError("report", err)
	}

	if reportFlags.topN > 0 && len(rep.TopResources) > reportFlags.topN {
		rep.TopResources = rep.TopResources[:reportFlags.topN]
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), rep)
}

func localReport(ctx context.Context, cfg *config.Config) (*report.UsageReport, error) {
	mon, err := monitor.New(cfg, monitor.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = mon.Shutdown(ctx) }()

	return mon.GenerateReport(ctx)
}

// fetchReport GETs the report of a running server. With tracing enabled the
// request runs in a client span whose context is sent as traceparent, so the
// server's request span joins the same trace.
func fetchReport(ctx context.Context, cfg *config.Config, url string, timeout time.Duration) (rep *report.UsageReport, err error) {
	tracer, err := tracing.New(ctx, cfg.Tracing, Version)
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Tracing.Timeout)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	ctx, span := tracer.Start(ctx, "usage.report.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		tracing.SetError(span, err)
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid report URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	tracing.Inject(ctx, req.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("report endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	rep = &report.UsageReport{}
	if err := json.NewDecoder(resp.Body).Decode(rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return rep, nil
}
