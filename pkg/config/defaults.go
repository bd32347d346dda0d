package config

import "time"

// Default values for configuration fields.
const (
	DefaultEnvironment = "development"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Metrics defaults
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsPrefix  = "meter"
	DefaultMetricsDefault = true
	DefaultMaxSeries      = 10000

	// Sampler defaults
	DefaultMemoryInterval     = 30 * time.Second
	DefaultReportInterval     = 3600 * time.Second
	DefaultMemoryWarningRatio = 0.8
	MinMemoryInterval         = 1000 * time.Millisecond
	MaxMemoryInterval         = 300000 * time.Millisecond

	// Report defaults
	DefaultReportPath = "/usage/report"
	DefaultUsagePath  = "/usage"
	DefaultReportTopN = 10

	// Health defaults
	DefaultHealthEnabled      = true
	DefaultHealthPath         = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultVersionPath        = "/version"
	DefaultHealthCheckTimeout = 5 * time.Second

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"

	// Tracing defaults
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "mercator-meter"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultDurationBuckets are the default operation_duration_seconds bounds.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Default returns a configuration with every field at its default. Boolean
// switches that default to true are set here; LoadConfig decodes YAML over
// this value so an explicit false in the file wins.
func Default() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{
			Enabled:        DefaultMetricsEnabled,
			DefaultMetrics: DefaultMetricsDefault,
		},
		Health: HealthConfig{
			Enabled: DefaultHealthEnabled,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Prefix == "" {
		cfg.Metrics.Prefix = DefaultMetricsPrefix
	}
	if cfg.Metrics.MaxSeries == 0 {
		cfg.Metrics.MaxSeries = DefaultMaxSeries
	}
	if len(cfg.Metrics.DurationBuckets) == 0 {
		cfg.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	// Sampler defaults
	if cfg.Sampler.MemoryInterval == 0 {
		cfg.Sampler.MemoryInterval = DefaultMemoryInterval
	}
	if cfg.Sampler.ReportInterval == 0 {
		cfg.Sampler.ReportInterval = DefaultReportInterval
	}
	if cfg.Sampler.MemoryWarningRatio == 0 {
		cfg.Sampler.MemoryWarningRatio = DefaultMemoryWarningRatio
	}

	// Limits defaults
	if cfg.Limits.Values == nil {
		cfg.Limits.Values = make(map[string]float64)
	}
	if cfg.Limits.Aliases == nil {
		cfg.Limits.Aliases = make(map[string]string)
	}

	// Report defaults
	if cfg.Report.Path == "" {
		cfg.Report.Path = DefaultReportPath
	}
	if cfg.Report.UsagePath == "" {
		cfg.Report.UsagePath = DefaultUsagePath
	}
	if cfg.Report.TopN == 0 {
		cfg.Report.TopN = DefaultReportTopN
	}

	// Health defaults
	if cfg.Health.Path == "" {
		cfg.Health.Path = DefaultHealthPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.VersionPath == "" {
		cfg.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	// Tracing defaults. A zero sample ratio is replaced; use the "never"
	// sampler to record nothing.
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}
}
