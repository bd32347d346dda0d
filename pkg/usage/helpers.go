package usage

import (
	"fmt"
	"strconv"
	"time"
)

// Operation labels used in operation_duration_seconds.
const (
	OperationQuery = "bigquery"
	OperationAI    = "ai"
	OperationCache = "cache"
)

// TrackQueryBytes records bytes processed by a query of queryType and the
// query's duration since start.
func (t *Tracker) TrackQueryBytes(bytes int64, queryType string, start time.Time) error {
	return t.trackOperation(ResourceQueryBytes, OperationQuery, bytes, queryType, start)
}

// TrackAITokens records tokens consumed by model and the call's duration
// since start.
func (t *Tracker) TrackAITokens(tokens int64, model string, start time.Time) error {
	return t.trackOperation(ResourceAITokens, OperationAI, tokens, model, start)
}

// TrackCacheItems records items stored in cacheName and the operation's
// duration since start.
func (t *Tracker) TrackCacheItems(items int64, cacheName string, start time.Time) error {
	return t.trackOperation(ResourceCacheItems, OperationCache, items, cacheName, start)
}

func (t *Tracker) trackOperation(resource, operation string, amount int64, tag string, start time.Time) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d for %s", ErrInvalidAmount, amount, resource)
	}
	if tag == "" {
		tag = DefaultTag
	}
	if err := t.Track(resource, float64(amount), tag); err != nil {
		return err
	}
	t.check(MetricOperationDuration, t.reg.Observe(MetricOperationDuration, []string{operation, tag}, t.elapsed(start)))
	return nil
}

// TrackAPICall records one handled API request: a counter increment labeled
// with endpoint, method and status code, a latency observation labeled with
// endpoint and method, and one unit of the api.calls resource tagged with the
// endpoint.
func (t *Tracker) TrackAPICall(endpoint, method string, statusCode int, start time.Time) {
	t.check(MetricAPIRequests, t.reg.Increment(MetricAPIRequests, []string{endpoint, method, strconv.Itoa(statusCode)}, 1))
	t.check(MetricAPIRequestDuration, t.reg.Observe(MetricAPIRequestDuration, []string{endpoint, method}, t.elapsed(start)))
	_ = t.Track(ResourceAPICalls, 1, endpoint)
}

// TrackError counts err against service in errors_total. The error_type
// label is derived with ErrorKind. TrackError never fails.
func (t *Tracker) TrackError(service string, err error) {
	if service == "" {
		service = "unknown"
	}
	kind := ErrorKind(err)
	t.logger.Debug("error tracked", "service", service, "error_type", kind, "error", err)
	t.check(MetricErrors, t.reg.Increment(MetricErrors, []string{service, kind}, 1))
}
