package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/meter/pkg/config"
	"mercator-hq/meter/pkg/limits"
	"mercator-hq/meter/pkg/report"
	"mercator-hq/meter/pkg/sampler"
	"mercator-hq/meter/pkg/telemetry/metrics"
	"mercator-hq/meter/pkg/telemetry/tracing"
	"mercator-hq/meter/pkg/usage"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrShutdown is returned by Start after Shutdown.
var ErrShutdown = errors.New("monitor is shut down")

// Monitor owns the usage monitoring subsystem: the metric registry, the limit
// table, the usage tracker, the periodic sampler and the latest usage report.
// It is constructed explicitly and handed to whatever needs it; there is no
// package-level instance.
type Monitor struct {
	cfg      *config.Config
	registry *metrics.Registry
	limits   *limits.Table
	tracker  *usage.Tracker
	sampler  *sampler.Sampler
	defaults prometheus.Gatherer

	logger     *slog.Logger
	tracer     *tracing.Tracer
	clock      quartz.Clock
	readMemory func() report.MemoryStats
	newID      func() string
	handlers   []usage.SignalHandler
	startedAt  time.Time

	latest atomic.Pointer[report.UsageReport]

	mu       sync.Mutex
	shutdown bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithTracer sets the tracer used for report generation spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(m *Monitor) {
		m.tracer = t
	}
}

// WithClock sets the clock used for durations and report timestamps.
func WithClock(c quartz.Clock) Option {
	return func(m *Monitor) {
		m.clock = c
	}
}

// WithMemoryReader replaces report.ReadMemoryStats.
func WithMemoryReader(f func() report.MemoryStats) Option {
	return func(m *Monitor) {
		m.readMemory = f
	}
}

// WithSignalHandler registers a threshold signal handler on the tracker.
func WithSignalHandler(h usage.SignalHandler) Option {
	return func(m *Monitor) {
		m.handlers = append(m.handlers, h)
	}
}

// WithIDGenerator replaces report.NewID.
func WithIDGenerator(f func() string) Option {
	return func(m *Monitor) {
		m.newID = f
	}
}

// New builds the subsystem from cfg. cfg is expected to be validated; New
// still fails if the limit table or an instrument cannot be built.
func New(cfg *config.Config, opts ...Option) (*Monitor, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	m := &Monitor{
		cfg:        cfg,
		logger:     slog.Default(),
		tracer:     tracing.Noop(),
		clock:      quartz.NewReal(),
		readMemory: report.ReadMemoryStats,
		newID:      report.NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.startedAt = m.clock.Now()

	m.registry = metrics.NewRegistry(metrics.WithMaxSeries(cfg.Metrics.MaxSeries))

	table, err := limits.NewTable(cfg.Limits.Values, limits.MergeAliases(cfg.Limits.Values, cfg.Limits.Aliases))
	if err != nil {
		return nil, fmt.Errorf("failed to build limit table: %w", err)
	}
	m.limits = table

	trackerOpts := []usage.Option{
		usage.WithClock(m.clock),
		usage.WithLogger(m.logger),
		usage.WithDurationBuckets(cfg.Metrics.DurationBuckets),
		usage.WithLatencyBuckets(cfg.Metrics.LatencyBuckets),
	}
	for _, h := range m.handlers {
		trackerOpts = append(trackerOpts, usage.WithSignalHandler(h))
	}
	m.tracker, err = usage.New(m.registry, table, trackerOpts...)
	if err != nil {
		return nil, err
	}

	m.sampler, err = sampler.New(
		sampler.Config{
			MemoryInterval:     cfg.Sampler.MemoryInterval,
			ReportInterval:     cfg.Sampler.ReportInterval,
			MemoryWarningRatio: cfg.Sampler.MemoryWarningRatio,
		},
		m.registry,
		m.tracker,
		m.GenerateReport,
		sampler.WithLogger(m.logger),
		sampler.WithMemoryReader(m.readMemory),
		sampler.WithReportSink(m.latest.Store),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.DefaultMetrics {
		gatherer, err := metrics.NewDefaultGatherer(cfg.Metrics.Prefix)
		if err != nil {
			return nil, err
		}
		m.defaults = gatherer
	}

	m.logger.Info("usage monitor initialized",
		"component", "monitor",
		"environment", cfg.Environment,
		"limits", table.Len(),
		"default_metrics", cfg.Metrics.DefaultMetrics,
	)
	return m, nil
}

// Tracer returns the tracer shared with the HTTP server.
func (m *Monitor) Tracer() *tracing.Tracer { return m.tracer }

// Registry returns the metric registry.
func (m *Monitor) Registry() *metrics.Registry { return m.registry }

// Tracker returns the usage tracker.
func (m *Monitor) Tracker() *usage.Tracker { return m.tracker }

// Limits returns the limit table.
func (m *Monitor) Limits() *limits.Table { return m.limits }

// Sampler returns the periodic sampler.
func (m *Monitor) Sampler() *sampler.Sampler { return m.sampler }

// Environment returns the configured environment tag.
func (m *Monitor) Environment() string { return m.cfg.Environment }

// Now returns the current time of the monitor's clock.
func (m *Monitor) Now() time.Time { return m.clock.Now() }

// Uptime returns the time since New.
func (m *Monitor) Uptime() time.Duration { return m.clock.Since(m.startedAt) }

// MetricsHandler returns the exposition endpoint handler.
func (m *Monitor) MetricsHandler() http.Handler {
	return metrics.Handler(m.registry, m.defaults, m.logger)
}

// LatestReport returns the most recent scheduled report, or nil if none has
// been generated yet.
func (m *Monitor) LatestReport() *report.UsageReport {
	return m.latest.Load()
}

// Resources returns the n highest resource usages with their limits. n <= 0
// returns every tracked resource.
func (m *Monitor) Resources(n int) []report.ResourceUsage {
	top := m.tracker.TopN(n)
	out := make([]report.ResourceUsage, 0, len(top))
	for _, ru := range top {
		r := report.ResourceUsage{Resource: ru.Resource, Usage: ru.Usage}
		if ru.HasLimit {
			limit := ru.Limit
			r.Limit = &limit
		}
		out = append(out, r)
	}
	return out
}

// GenerateReport builds a report from the current process memory, uptime
// and the configured top-N resources. It does not replace the latest report.
func (m *Monitor) GenerateReport(ctx context.Context) (*report.UsageReport, error) {
	ctx, span := m.tracer.Start(ctx, "usage.report.generate")
	defer span.End()

	if err := ctx.Err(); err != nil {
		tracing.SetError(span, err)
		return nil, err
	}

	r := report.Build(report.Input{
		ID:          m.newID(),
		Timestamp:   m.clock.Now(),
		Memory:      m.readMemory(),
		Uptime:      m.Uptime(),
		Environment: m.cfg.Environment,
		Resources:   m.Resources(m.cfg.Report.TopN),
	})
	tracing.SetReportAttributes(span, r.ID, r.Environment, len(r.TopResources), r.UptimeSeconds)
	return r, nil
}

// Start starts the sampler. Cancelling ctx stops it.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return ErrShutdown
	}
	return m.sampler.Start(ctx)
}

// Shutdown stops the sampler, waiting for in-flight cycles, then clears
// every metric sample. It is idempotent. If ctx expires first the registry
// is left untouched and ctx's error is returned; the sampler still stops in
// the background.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil
	}

	done := make(chan struct{})
	go func() {
		m.sampler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("sampler did not stop: %w", ctx.Err())
	}

	m.registry.Reset()
	m.shutdown = true
	m.logger.Info("usage monitor shut down", "component", "monitor")
	return nil
}
