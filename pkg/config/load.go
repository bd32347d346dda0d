package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "MERCATOR_METER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over Default(), defaults are applied to any field
// left empty, and the result is validated.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and applies defaults. It does not
// validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MERCATOR_METER_SECTION_FIELD (e.g.,
// MERCATOR_METER_SERVER_LISTEN_ADDRESS). Environment variables always take
// precedence over file-based configuration.
//
// An empty path skips the file and starts from Default().
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed values are collected into a ValidationError
// instead of being silently ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}
	boolean := func(name string, dst *bool) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid boolean %q", val)})
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			d, err := parseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid duration %q", val)})
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	float := func(name string, dst *float64) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid number %q", val)})
				return
			}
			*dst = f
		}
	}

	str("ENVIRONMENT", &cfg.Environment)

	// Server overrides
	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Metrics overrides
	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_PATH", &cfg.Metrics.Path)
	str("METRICS_PREFIX", &cfg.Metrics.Prefix)
	boolean("METRICS_DEFAULT_METRICS", &cfg.Metrics.DefaultMetrics)
	integer("METRICS_MAX_SERIES", &cfg.Metrics.MaxSeries)

	// Sampler overrides
	duration("SAMPLER_MEMORY_INTERVAL", &cfg.Sampler.MemoryInterval)
	duration("SAMPLER_REPORT_INTERVAL", &cfg.Sampler.ReportInterval)
	float("SAMPLER_MEMORY_WARNING_RATIO", &cfg.Sampler.MemoryWarningRatio)

	// Limits overrides: MERCATOR_METER_LIMITS="key=value,key=value"
	if val := os.Getenv(EnvPrefix + "LIMITS"); val != "" {
		values, err := parseLimits(val)
		if err != nil {
			errs = append(errs, FieldError{Field: EnvPrefix + "LIMITS", Message: err.Error()})
		}
		for k, v := range values {
			cfg.Limits.Values[k] = v
		}
	}

	// Report overrides
	str("REPORT_PATH", &cfg.Report.Path)
	integer("REPORT_TOP_N", &cfg.Report.TopN)

	// Health overrides
	boolean("HEALTH_ENABLED", &cfg.Health.Enabled)

	// Logging overrides
	str("LOGGING_LEVEL", &cfg.Logging.Level)
	str("LOGGING_FORMAT", &cfg.Logging.Format)
	boolean("LOGGING_ADD_SOURCE", &cfg.Logging.AddSource)

	// Tracing overrides
	boolean("TRACING_ENABLED", &cfg.Tracing.Enabled)
	str("TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	str("TRACING_SAMPLER", &cfg.Tracing.Sampler)
	float("TRACING_SAMPLE_RATIO", &cfg.Tracing.SampleRatio)
	boolean("TRACING_INSECURE", &cfg.Tracing.Insecure)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %w", ValidationError{Errors: errs})
	}
	return nil
}

// parseDuration accepts Go duration strings ("30s") and bare integers,
// which are read as milliseconds.
func parseDuration(val string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(val)
}

func parseLimits(val string) (map[string]float64, error) {
	values := make(map[string]float64)
	for _, pair := range strings.Split(val, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return values, fmt.Errorf("invalid limit %q, expected key=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return values, fmt.Errorf("invalid limit value for %q: %w", key, err)
		}
		values[strings.TrimSpace(key)] = v
	}
	return values, nil
}
