// Package config provides configuration management for Mercator Meter.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides. Configuration is read once at startup
// and passed explicitly to the components that need it; there is no global
// instance.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("meter.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("meter.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention
// MERCATOR_METER_SECTION_FIELD. For example:
//
//   - MERCATOR_METER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - MERCATOR_METER_SAMPLER_MEMORY_INTERVAL overrides sampler.memory_interval
//     (a Go duration such as "30s", or milliseconds)
//   - MERCATOR_METER_LIMITS="queryEngine.maxBytesProcessed=1e8,ai.maxTokens=50000"
//     adds or replaces limit values
//   - MERCATOR_METER_TRACING_ENABLED=true turns on span export
//
// # Example
//
//	environment: production
//	metrics:
//	  prefix: meter
//	  default_metrics: true
//	sampler:
//	  memory_interval: 30s
//	  report_interval: 1h
//	limits:
//	  values:
//	    queryEngine.maxBytesProcessed: 100000000
//	    ai.maxTokens: 1000000
//	tracing:
//	  enabled: true
//	  endpoint: otel-collector:4317
//	  insecure: true
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors:
// the metric prefix must match ^[a-z][a-z0-9_]*$, the memory interval must
// be within 1000-300000 ms, limits must be non-negative, every endpoint
// path must start with "/" and an enabled tracer needs a host:port endpoint.
package config
