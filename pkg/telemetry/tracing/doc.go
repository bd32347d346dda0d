// Package tracing provides OpenTelemetry tracing for Mercator Meter.
//
// Tracing is off by default. When enabled, spans are exported over
// OTLP/gRPC and W3C trace context is honoured on incoming requests:
//
//	tracer, err := tracing.New(ctx, cfg.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Two kinds of spans are produced:
//
//   - one server span per HTTP request (HTTPMiddleware), named after the
//     matched route by SetRoute, carrying method, status and request ID
//   - one span per usage report generation, carrying the report ID
//
// Logs written with a traced context carry a trace_id attribute.
//
// # Sampling
//
//	tracing:
//	  enabled: true
//	  sampler: ratio      # always, never, ratio
//	  sample_ratio: 0.1
//
// All samplers respect the parent's sampling decision.
package tracing
