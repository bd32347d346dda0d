// Package metrics provides the in-process metric registry for Mercator Meter.
//
// # Overview
//
// A Registry owns named counters, gauges and histograms, each with a fixed
// ordered list of label names. Series are keyed by their label values and
// mutated in place. Render produces the text exposition format
// deterministically: instruments in declaration order, series in first-seen
// order.
//
// # Usage
//
//	reg := metrics.NewRegistry()
//
//	_ = reg.Declare("resource_usage", metrics.KindGauge,
//		"Cumulative usage per resource.", []string{"resource", "service"})
//	_ = reg.Set("resource_usage", []string{"bigquery.bytes", "select"}, 85000000)
//
//	_ = reg.Declare("operation_duration_seconds", metrics.KindHistogram,
//		"Operation latency.", []string{"operation", "tag"}, 0.1, 0.5, 1, 5)
//	_ = reg.Observe("operation_duration_seconds", []string{"bigquery", "select"}, 0.42)
//
// # Errors
//
// Misuse is reported with sentinel errors wrapped in *InstrumentError:
// ErrDuplicateInstrument, ErrUnknownInstrument, ErrWrongKind,
// ErrInvalidLabelCardinality and ErrNegativeDelta.
//
// # Prometheus Endpoint
//
// Handler serves the registry followed by the Go runtime and process
// collectors from client_golang:
//
//	# HELP resource_usage Cumulative usage per resource.
//	# TYPE resource_usage gauge
//	resource_usage{resource="bigquery.bytes",service="select"} 85000000
package metrics
