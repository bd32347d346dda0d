package config

import (
	"fmt"
	"maps"
	"math"
	"net"
	"regexp"
	"slices"
	"strings"
)

// metricPrefixPattern is the accepted form of metrics.prefix.
var metricPrefixPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Environment == "" {
		errs = append(errs, FieldError{Field: "environment", Message: "environment is required"})
	}
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateSampler(&cfg.Sampler)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateReport(&cfg.Report)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateTracing(&cfg.Tracing)...)
	errs = append(errs, validatePathConflicts(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	for _, d := range []struct {
		field string
		value int64
	}{
		{"server.read_timeout", int64(cfg.ReadTimeout)},
		{"server.write_timeout", int64(cfg.WriteTimeout)},
		{"server.idle_timeout", int64(cfg.IdleTimeout)},
		{"server.shutdown_timeout", int64(cfg.ShutdownTimeout)},
	} {
		if d.value < 0 {
			errs = append(errs, FieldError{Field: d.field, Message: "timeout must be positive"})
		}
	}
	return errs
}

// validateMetrics validates metrics configuration.
func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	if !metricPrefixPattern.MatchString(cfg.Prefix) {
		errs = append(errs, FieldError{
			Field:   "metrics.prefix",
			Message: fmt.Sprintf("prefix %q must match %s", cfg.Prefix, metricPrefixPattern),
		})
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{Field: "metrics.path", Message: "path must start with /"})
	}
	if cfg.MaxSeries < 0 {
		errs = append(errs, FieldError{Field: "metrics.max_series", Message: "max series must be non-negative"})
	}
	errs = append(errs, validateBuckets("metrics.duration_buckets", cfg.DurationBuckets)...)
	errs = append(errs, validateBuckets("metrics.latency_buckets", cfg.LatencyBuckets)...)
	return errs
}

func validateBuckets(field string, buckets []float64) []FieldError {
	for i, b := range buckets {
		if math.IsNaN(b) {
			return []FieldError{{Field: field, Message: "buckets must be numbers"}}
		}
		if i > 0 && b <= buckets[i-1] {
			return []FieldError{{Field: field, Message: "buckets must be strictly increasing"}}
		}
	}
	return nil
}

// validateSampler validates the sampler cadence.
func validateSampler(cfg *SamplerConfig) []FieldError {
	var errs []FieldError

	if cfg.MemoryInterval < MinMemoryInterval || cfg.MemoryInterval > MaxMemoryInterval {
		errs = append(errs, FieldError{
			Field: "sampler.memory_interval",
			Message: fmt.Sprintf("memory interval %dms must be within %d-%dms",
				cfg.MemoryInterval.Milliseconds(), MinMemoryInterval.Milliseconds(), MaxMemoryInterval.Milliseconds()),
		})
	}
	if cfg.ReportInterval < cfg.MemoryInterval {
		errs = append(errs, FieldError{
			Field:   "sampler.report_interval",
			Message: "report interval must not be shorter than the memory interval",
		})
	}
	if cfg.MemoryWarningRatio <= 0 || cfg.MemoryWarningRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "sampler.memory_warning_ratio",
			Message: "memory warning ratio must be in (0, 1]",
		})
	}
	return errs
}

// validateLimits validates limit values and aliases.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	for _, key := range slices.Sorted(maps.Keys(cfg.Values)) {
		v := cfg.Values[key]
		if key == "" {
			errs = append(errs, FieldError{Field: "limits.values", Message: "limit key must not be empty"})
			continue
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, FieldError{
				Field:   "limits.values." + key,
				Message: fmt.Sprintf("limit %v must be a finite non-negative number", v),
			})
		}
	}

	for _, alias := range slices.Sorted(maps.Keys(cfg.Aliases)) {
		target := cfg.Aliases[alias]
		if _, ok := cfg.Values[target]; !ok {
			errs = append(errs, FieldError{
				Field:   "limits.aliases." + alias,
				Message: fmt.Sprintf("alias target %q is not a declared limit", target),
			})
		}
	}
	return errs
}

// validateReport validates report configuration.
func validateReport(cfg *ReportConfig) []FieldError {
	var errs []FieldError

	if !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{Field: "report.path", Message: "path must start with /"})
	}
	if !strings.HasPrefix(cfg.UsagePath, "/") {
		errs = append(errs, FieldError{Field: "report.usage_path", Message: "path must start with /"})
	}
	if cfg.TopN < 0 {
		errs = append(errs, FieldError{Field: "report.top_n", Message: "top_n must be non-negative"})
	}
	return errs
}

// validateHealth validates health endpoint configuration.
func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	for _, p := range []struct{ field, path string }{
		{"health.path", cfg.Path},
		{"health.readiness_path", cfg.ReadinessPath},
		{"health.version_path", cfg.VersionPath},
	} {
		if !strings.HasPrefix(p.path, "/") {
			errs = append(errs, FieldError{Field: p.field, Message: "path must start with /"})
		}
	}
	if cfg.CheckTimeout < 0 {
		errs = append(errs, FieldError{Field: "health.check_timeout", Message: "check timeout must be positive"})
	}
	return errs
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Level),
		})
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Format),
		})
	}
	return errs
}

// validateTracing validates tracing configuration. The exporter settings
// are only checked when tracing is enabled.
func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Sampler),
		})
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
	}
	if !cfg.Enabled {
		return errs
	}

	if _, _, err := net.SplitHostPort(cfg.Endpoint); err != nil {
		errs = append(errs, FieldError{Field: "tracing.endpoint", Message: fmt.Sprintf("invalid endpoint %q: %v", cfg.Endpoint, err)})
	}
	if cfg.ServiceName == "" {
		errs = append(errs, FieldError{Field: "tracing.service_name", Message: "service name is required"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "tracing.timeout", Message: "timeout must be positive"})
	}
	return errs
}

// validatePathConflicts rejects two endpoints sharing one path.
func validatePathConflicts(cfg *Config) []FieldError {
	var errs []FieldError

	seen := make(map[string]string)
	for _, p := range []struct{ field, path string }{
		{"metrics.path", cfg.Metrics.Path},
		{"report.path", cfg.Report.Path},
		{"report.usage_path", cfg.Report.UsagePath},
		{"health.path", cfg.Health.Path},
		{"health.readiness_path", cfg.Health.ReadinessPath},
		{"health.version_path", cfg.Health.VersionPath},
	} {
		if p.path == "" {
			continue
		}
		if other, ok := seen[p.path]; ok {
			errs = append(errs, FieldError{
				Field:   p.field,
				Message: fmt.Sprintf("path %q is already used by %s", p.path, other),
			})
			continue
		}
		seen[p.path] = p.field
	}
	return errs
}
