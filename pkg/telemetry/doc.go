// Package telemetry groups the observability packages of Mercator Meter.
//
// # Components
//
//   - logging: structured slog logging with request and trace IDs
//   - metrics: the declared metric registry and Prometheus exposition
//   - tracing: OpenTelemetry spans for HTTP requests and report generation
//   - health: liveness, readiness and version endpoints
//
// The packages are wired together by the monitor and server packages; this
// package holds no code of its own.
package telemetry
