package usage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"mercator-hq/meter/pkg/limits"
	"mercator-hq/meter/pkg/telemetry/metrics"

	"github.com/coder/quartz"
)

// DefaultTag is the service label used when Track is called without a tag.
const DefaultTag = "default"

// Resource keys recorded by the typed helpers.
const (
	ResourceQueryBytes = "bigquery.bytes"
	ResourceAITokens   = "ai.tokens"
	ResourceCacheItems = "cache.items"
	ResourceAPICalls   = "api.calls"
)

// Instrument names declared by the tracker.
const (
	MetricResourceUsage      = "resource_usage"
	MetricThresholdSignals   = "resource_threshold_signals_total"
	MetricOperationDuration  = "operation_duration_seconds"
	MetricAPIRequests        = "api_requests_total"
	MetricAPIRequestDuration = "api_request_duration_seconds"
	MetricErrors             = "errors_total"
)

// DefaultDurationBuckets are the operation_duration_seconds bounds. External
// queries and model calls range from milliseconds to tens of seconds.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// SignalHandler receives threshold signals. Handlers are registered with
// WithSignalHandler and run synchronously on the tracking goroutine after the
// tracker lock is released; they must not block.
type SignalHandler func(limits.ThresholdSignal)

// Tracker owns cumulative per-resource usage. Every tracked amount updates
// the resource_usage gauge and is checked against the limit table.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	reg    *metrics.Registry
	limits *limits.Table
	clock  quartz.Clock
	logger *slog.Logger

	durationBuckets []float64
	latencyBuckets  []float64

	mu     sync.Mutex
	usage  map[string]float64
	series map[seriesID]float64
	// capped is set once the registry refused a new resource_usage series.
	capped bool

	handlers []SignalHandler
}

type seriesID struct {
	resource string
	tag      string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used to measure elapsed time. Tests pass a
// quartz.Mock.
func WithClock(c quartz.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithLogger sets the logger signals and internal errors are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithDurationBuckets overrides the operation_duration_seconds bounds.
func WithDurationBuckets(b []float64) Option {
	return func(t *Tracker) {
		if len(b) > 0 {
			t.durationBuckets = b
		}
	}
}

// WithLatencyBuckets overrides the api_request_duration_seconds bounds.
func WithLatencyBuckets(b []float64) Option {
	return func(t *Tracker) {
		if len(b) > 0 {
			t.latencyBuckets = b
		}
	}
}

// WithSignalHandler registers a handler at construction time.
func WithSignalHandler(h SignalHandler) Option {
	return func(t *Tracker) {
		t.handlers = append(t.handlers, h)
	}
}

// New creates a tracker writing to reg and evaluating against table, and
// declares the tracker's instruments on reg. table may be nil, in which case
// no signals are ever raised.
func New(reg *metrics.Registry, table *limits.Table, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		reg:             reg,
		limits:          table,
		clock:           quartz.NewReal(),
		logger:          slog.Default(),
		durationBuckets: DefaultDurationBuckets,
		usage:           make(map[string]float64),
		series:          make(map[seriesID]float64),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "usage")

	if err := t.declare(); err != nil {
		return nil, fmt.Errorf("failed to declare usage instruments: %w", err)
	}
	return t, nil
}

func (t *Tracker) declare() error {
	decls := []struct {
		name    string
		kind    metrics.Kind
		help    string
		labels  []string
		buckets []float64
	}{
		{MetricResourceUsage, metrics.KindGauge, "Cumulative usage of a constrained resource since process start.", []string{"resource", "service"}, nil},
		{MetricThresholdSignals, metrics.KindCounter, "Limit threshold signals raised per resource and severity.", []string{"resource", "severity"}, nil},
		{MetricOperationDuration, metrics.KindHistogram, "Duration of tracked resource-consuming operations in seconds.", []string{"operation", "tag"}, t.durationBuckets},
		{MetricAPIRequests, metrics.KindCounter, "API requests handled.", []string{"endpoint", "method", "status_code"}, nil},
		{MetricAPIRequestDuration, metrics.KindHistogram, "API request latency in seconds.", []string{"endpoint", "method"}, t.latencyBuckets},
		{MetricErrors, metrics.KindCounter, "Errors recorded per service and error type.", []string{"service", "error_type"}, nil},
	}
	for _, d := range decls {
		if err := t.reg.Declare(d.name, d.kind, d.help, d.labels, d.buckets...); err != nil {
			return err
		}
	}
	return nil
}

// Track adds amount to the cumulative usage of resourceKey.
//
// The resource_usage{resource, service=tag} gauge is set to the running total
// of that label pair, so trackers using different tags for one resource keep
// separate series. The limit check uses the resource-wide total. An empty tag
// is recorded as DefaultTag. When the registry refuses a new series (series
// cap, label value not UTF-8) the usage still counts towards the resource
// total but no per-tag total is kept for it.
//
// Track fails only for invalid input (ErrInvalidAmount, ErrInvalidResource).
// Missing limits and threshold breaches never fail the call.
func (t *Tracker) Track(resourceKey string, amount float64, tag string) error {
	if resourceKey == "" {
		return ErrInvalidResource
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: %v for %s", ErrInvalidAmount, amount, resourceKey)
	}
	if tag == "" {
		tag = DefaultTag
	}

	t.mu.Lock()
	total := t.usage[resourceKey] + amount
	t.usage[resourceKey] = total
	id := seriesID{resource: resourceKey, tag: tag}
	seriesTotal := t.series[id] + amount
	// Set under the lock so concurrent writers cannot publish an older total.
	err := t.reg.Set(MetricResourceUsage, []string{resourceKey, tag}, seriesTotal)
	switch {
	case err == nil:
		t.series[id] = seriesTotal
	case errors.Is(err, metrics.ErrSeriesLimit):
		if !t.capped {
			t.capped = true
			t.logger.Warn("resource usage series limit reached, new resource/tag pairs are not exported",
				"resource", resourceKey, "tag", tag)
		}
	default:
		t.check(MetricResourceUsage, err)
	}
	t.mu.Unlock()

	for _, sig := range t.limits.Evaluate(resourceKey, total) {
		t.emit(sig)
	}
	return nil
}

func (t *Tracker) emit(sig limits.ThresholdSignal) {
	level := slog.LevelWarn
	if sig.Severity == limits.SeverityCritical {
		level = slog.LevelError
	}
	t.logger.Log(context.Background(), level, "resource usage threshold exceeded",
		"resource", sig.Resource,
		"limit_key", sig.LimitKey,
		"severity", sig.Severity.String(),
		"usage", sig.Usage,
		"limit", sig.Limit,
		"percentage", sig.Percentage(),
	)

	t.check(MetricThresholdSignals, t.reg.Increment(MetricThresholdSignals, []string{sig.Resource, sig.Severity.String()}, 1))

	for _, h := range t.handlers {
		h(sig)
	}
}

// RecordSignal logs, counts and dispatches a signal raised outside Track,
// such as the sampler's heap pressure warning.
func (t *Tracker) RecordSignal(sig limits.ThresholdSignal) {
	t.emit(sig)
}

// Usage returns the cumulative usage of resourceKey, zero if never tracked.
func (t *Tracker) Usage(resourceKey string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage[resourceKey]
}

// Snapshot returns a copy of the cumulative usage of every tracked resource.
func (t *Tracker) Snapshot() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.usage)
}

// ResourceUsage is one entry of TopN.
type ResourceUsage struct {
	Resource string
	Usage    float64

	// Limit is only meaningful when HasLimit is true.
	Limit    float64
	HasLimit bool
}

// TopN returns the n resources with the highest cumulative usage, highest
// first, ties broken by key. n <= 0 returns every resource.
func (t *Tracker) TopN(n int) []ResourceUsage {
	snap := t.Snapshot()

	out := make([]ResourceUsage, 0, len(snap))
	for k, v := range snap {
		ru := ResourceUsage{Resource: k, Usage: v}
		ru.Limit, ru.HasLimit = t.limits.Get(k)
		out = append(out, ru)
	}
	slices.SortFunc(out, func(a, b ResourceUsage) int {
		if c := cmp.Compare(b.Usage, a.Usage); c != 0 {
			return c
		}
		return cmp.Compare(a.Resource, b.Resource)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Limits returns the table the tracker evaluates against.
func (t *Tracker) Limits() *limits.Table {
	return t.limits
}

// elapsed returns the seconds since start, or zero for a zero or future start.
func (t *Tracker) elapsed(start time.Time) float64 {
	if start.IsZero() {
		return 0
	}
	return max(t.clock.Since(start).Seconds(), 0)
}

// check logs registry errors from the tracker's own writes. They indicate a
// wiring bug; tracking stays total regardless.
func (t *Tracker) check(instrument string, err error) {
	if err != nil {
		t.logger.Error("failed to record metric", "instrument", instrument, "error", err)
	}
}
