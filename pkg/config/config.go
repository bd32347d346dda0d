package config

import "time"

// Config is the root configuration structure for Mercator Meter.
// It is read once at startup and passed explicitly to every component that
// needs it.
type Config struct {
	// Environment is the deployment environment tag reported in usage
	// reports (e.g., "production", "staging").
	// Default: "development"
	Environment string `yaml:"environment"`

	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Metrics contains metric registry and exposition configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Sampler contains the cadence of the memory sampler and report generator.
	Sampler SamplerConfig `yaml:"sampler"`

	// Limits contains resource limits and resource key aliases.
	Limits LimitsConfig `yaml:"limits"`

	// Report contains usage report configuration.
	Report ReportConfig `yaml:"report"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:9090", "0.0.0.0:9090").
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Prefix is prepended (with "_") to the default Go runtime and process
	// metric names. Must match ^[a-z][a-z0-9_]*$.
	// Default: "meter"
	Prefix string `yaml:"prefix"`

	// DefaultMetrics enables the Go runtime and process collectors.
	// Default: true
	DefaultMetrics bool `yaml:"default_metrics"`

	// MaxSeries caps the label combinations per instrument.
	// Default: 10000
	MaxSeries int `yaml:"max_series"`

	// DurationBuckets are the operation_duration_seconds bounds.
	// Default: [0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60]
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// LatencyBuckets are the api_request_duration_seconds bounds.
	// Default: Prometheus default buckets
	LatencyBuckets []float64 `yaml:"latency_buckets"`
}

// SamplerConfig contains the periodic sampler cadence.
type SamplerConfig struct {
	// MemoryInterval is the memory sampling period. Must be within
	// 1000-300000 ms.
	// Default: 30s
	MemoryInterval time.Duration `yaml:"memory_interval"`

	// ReportInterval is the usage report period. Must not be shorter than
	// MemoryInterval.
	// Default: 1h
	ReportInterval time.Duration `yaml:"report_interval"`

	// MemoryWarningRatio is the heap used/reserved ratio above which a
	// warning signal is raised.
	// Default: 0.8
	MemoryWarningRatio float64 `yaml:"memory_warning_ratio"`
}

// LimitsConfig contains resource limits.
type LimitsConfig struct {
	// Values maps limit keys to numeric ceilings.
	// Example: {"queryEngine.maxBytesProcessed": 100000000}
	Values map[string]float64 `yaml:"values"`

	// Aliases maps tracked resource keys to limit keys. They are merged over
	// the built-in aliases (bigquery.bytes, ai.tokens, cache.items, api.calls).
	Aliases map[string]string `yaml:"aliases"`
}

// ReportConfig contains usage report configuration.
type ReportConfig struct {
	// Path is the HTTP path for the latest usage report.
	// Default: "/usage/report"
	Path string `yaml:"path"`

	// UsagePath is the HTTP path for current per-resource usage.
	// Default: "/usage"
	UsagePath string `yaml:"usage_path"`

	// TopN is the number of resources included in a report.
	// Default: 10
	TopN int `yaml:"top_n"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the path of the health endpoint.
	// Default: "/health"
	Path string `yaml:"path"`

	// ReadinessPath is the path of the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path of the version endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Spans are
// exported over OTLP/gRPC.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address (host:port).
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service.name resource attribute.
	// Default: "mercator-meter"
	ServiceName string `yaml:"service_name"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the "ratio" sampler.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
