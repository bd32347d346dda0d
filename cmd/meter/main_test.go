package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"mercator-hq/meter/pkg/cli"
	"mercator-hq/meter/pkg/config"
	"mercator-hq/meter/pkg/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its standard output.
// Flag globals are reset first since cobra keeps values between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel = "", ""
	runFlags.listenAddress, runFlags.dryRun = "", false
	reportFlags.format, reportFlags.url, reportFlags.topN, reportFlags.timeout = "text", "", 0, 10*time.Second

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Mercator Meter "+Version)
	assert.Contains(t, out, runtime.Version())
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeConfig(t, `
environment: staging
limits:
  values:
    queryEngine.maxBytesProcessed: 100000000
`)
		out, err := execute(t, "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration valid")
		assert.Contains(t, out, "staging")
	})

	t.Run("invalid", func(t *testing.T) {
		path := writeConfig(t, `
metrics:
  prefix: "9bad"
sampler:
  memory_interval: 10ms
`)
		_, err := execute(t, "validate", "--config", path)
		require.Error(t, err)
		assert.Equal(t, cli.ExitConfigError, cli.ExitCode(err))

		var verr config.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.GreaterOrEqual(t, len(verr.Errors), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Equal(t, cli.ExitConfigError, cli.ExitCode(err))
	})
}

func TestRunCommand_DryRun(t *testing.T) {
	out, err := execute(t, "run", "--dry-run", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
}

func TestRunCommand_InvalidListen(t *testing.T) {
	_, err := execute(t, "run", "--dry-run", "--listen", "not-an-address")
	assert.Equal(t, cli.ExitConfigError, cli.ExitCode(err))
}

func TestReportCommand_Local(t *testing.T) {
	out, err := execute(t, "report", "--format", "json")
	require.NoError(t, err)

	var rep report.UsageReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, config.DefaultEnvironment, rep.Environment)
	assert.NotZero(t, rep.MemoryBytes.HeapTotal)
}

func TestReportCommand_URL(t *testing.T) {
	limit := 100000000.0
	served := report.Build(report.Input{
		ID:          "r-42",
		Timestamp:   time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC),
		Memory:      report.MemoryStats{HeapTotal: 2048, HeapUsed: 1536},
		Uptime:      time.Minute,
		Environment: "production",
		Resources: []report.ResourceUsage{
			{Resource: "bigquery.bytes", Usage: 85000000, Limit: &limit},
			{Resource: "api.calls", Usage: 12},
		},
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != config.DefaultReportPath {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(served)
	}))
	defer ts.Close()

	out, err := execute(t, "report", "--url", ts.URL, "--format", "csv", "--top", "1")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "header plus one resource")
	assert.Contains(t, records[1], "bigquery.bytes")

	out, err = execute(t, "report", "--url", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "r-42")
}

func TestReportCommand_PropagatesTraceContext(t *testing.T) {
	t.Setenv(config.EnvPrefix+"TRACING_ENABLED", "true")
	t.Setenv(config.EnvPrefix+"TRACING_SAMPLER", "never")
	t.Setenv(config.EnvPrefix+"TRACING_INSECURE", "true")

	traceparent := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent <- r.Header.Get("traceparent")
		_ = json.NewEncoder(w).Encode(report.Build(report.Input{ID: "r-7", Timestamp: time.Now()}))
	}))
	defer ts.Close()

	out, err := execute(t, "report", "--url", ts.URL, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "r-7")

	got := <-traceparent
	parts := strings.Split(got, "-")
	require.Len(t, parts, 4, "traceparent %q", got)
	assert.Equal(t, "00", parts[0])
	assert.Len(t, parts[1], 32)
	assert.Equal(t, "00", parts[3], "unsampled by the never sampler")
}

func TestReportCommand_Errors(t *testing.T) {
	_, err := execute(t, "report", "--format", "yaml")
	assert.Error(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err = execute(t, "report", "--url", ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
}
