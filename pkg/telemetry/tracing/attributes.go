package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow the OpenTelemetry semantic conventions;
// domain keys use the "meter." namespace.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"

	AttrRequestID    = "meter.request_id"
	AttrReportID     = "meter.report.id"
	AttrEnvironment  = "meter.environment"
	AttrTopResources = "meter.report.top_resources"
	AttrUptime       = "meter.uptime_seconds"

	AttrErrorMessage = "error.message"
)

// SetReportAttributes describes a generated usage report on span.
func SetReportAttributes(span trace.Span, id, environment string, resources int, uptimeSeconds float64) {
	span.SetAttributes(
		attribute.String(AttrReportID, id),
		attribute.String(AttrEnvironment, environment),
		attribute.Int(AttrTopResources, resources),
		attribute.Float64(AttrUptime, uptimeSeconds),
	)
}
