package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/meter/pkg/limits"
	"mercator-hq/meter/pkg/report"
	"mercator-hq/meter/pkg/telemetry/metrics"
	"mercator-hq/meter/pkg/usage"

	"github.com/robfig/cron/v3"
)

// Default intervals and bounds.
const (
	DefaultMemoryInterval     = 30 * time.Second
	DefaultReportInterval     = time.Hour
	DefaultMemoryWarningRatio = 0.8

	MinMemoryInterval = time.Second
	MaxMemoryInterval = 300 * time.Second
)

// Memory gauge names.
const (
	MetricHeapTotal = "process_memory_heap_total_bytes"
	MetricHeapUsed  = "process_memory_heap_used_bytes"
	MetricRSS       = "process_memory_rss_bytes"
	MetricExternal  = "process_memory_external_bytes"
)

// ResourceHeap is the resource key of heap pressure signals.
const ResourceHeap = "memory.heap"

// ServiceReport is the service label of report generation errors.
const ServiceReport = "usage_report"

// State is the lifecycle state of a sampler.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// ReportFunc builds a usage report.
type ReportFunc func(ctx context.Context) (*report.UsageReport, error)

// ReportSink receives every generated report.
type ReportSink func(*report.UsageReport)

// Config holds the sampler cadence.
type Config struct {
	// MemoryInterval is the memory sampling period, clamped to
	// [MinMemoryInterval, MaxMemoryInterval].
	MemoryInterval time.Duration

	// ReportInterval is the report generation period.
	ReportInterval time.Duration

	// MemoryWarningRatio is the heap used/total ratio above which a warning
	// signal is raised.
	MemoryWarningRatio float64
}

// Stats counts completed sampler cycles.
type Stats struct {
	MemorySamples  uint64
	Reports        uint64
	ReportFailures uint64
}

// Sampler runs two recurring activities: the memory sampler, which sets the
// process memory gauges, and the report generator. Both are started and
// stopped together.
//
// Each activity runs on its own cron scheduler with an "@every" spec. Stop
// cancels the sampler context, stops both schedulers, waits for in-flight
// jobs and marks the sampler closed, so no gauge or report write happens
// after Stop returns.
type Sampler struct {
	cfg        Config
	reg        *metrics.Registry
	tracker    *usage.Tracker
	readMemory func() report.MemoryStats
	generate   ReportFunc
	sink       ReportSink
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	stopped    bool
	memoryCron *cron.Cron
	reportCron *cron.Cron
	stopWatch  func() bool

	// runMu is held for reading by every job while it writes; Stop takes it
	// for writing to wait out in-flight jobs.
	runMu  sync.RWMutex
	closed bool

	memorySamples  atomic.Uint64
	reports        atomic.Uint64
	reportFailures atomic.Uint64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the sampler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = l
	}
}

// WithMemoryReader replaces report.ReadMemoryStats. Tests use it to feed
// fixed figures.
func WithMemoryReader(f func() report.MemoryStats) Option {
	return func(s *Sampler) {
		s.readMemory = f
	}
}

// WithReportSink sets the function every generated report is handed to.
func WithReportSink(sink ReportSink) Option {
	return func(s *Sampler) {
		s.sink = sink
	}
}

// New creates a stopped sampler and declares the memory gauges on reg.
func New(cfg Config, reg *metrics.Registry, tracker *usage.Tracker, generate ReportFunc, opts ...Option) (*Sampler, error) {
	if cfg.MemoryInterval <= 0 {
		cfg.MemoryInterval = DefaultMemoryInterval
	}
	cfg.MemoryInterval = min(max(cfg.MemoryInterval, MinMemoryInterval), MaxMemoryInterval)
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = DefaultReportInterval
	}
	if cfg.MemoryWarningRatio <= 0 {
		cfg.MemoryWarningRatio = DefaultMemoryWarningRatio
	}

	s := &Sampler{
		cfg:        cfg,
		reg:        reg,
		tracker:    tracker,
		readMemory: report.ReadMemoryStats,
		generate:   generate,
		sink:       func(*report.UsageReport) {},
		logger:     slog.Default(),
		state:      StateStopped,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sampler")
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, g := range []struct{ name, help string }{
		{MetricHeapTotal, "Heap memory reserved from the OS in bytes."},
		{MetricHeapUsed, "Heap memory in use in bytes."},
		{MetricRSS, "Resident set size in bytes."},
		{MetricExternal, "Memory obtained from the OS outside the heap in bytes."},
	} {
		if err := reg.Declare(g.name, metrics.KindGauge, g.help, nil); err != nil {
			return nil, fmt.Errorf("failed to declare memory gauges: %w", err)
		}
	}
	return s, nil
}

// Start schedules both activities. When ctx is cancelled the sampler stops
// itself. Start fails with ErrAlreadyStarted on a running sampler and with
// ErrStopped on a stopped one.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.state == StateRunning {
		return ErrAlreadyStarted
	}

	memoryCron, err := s.newCron(s.cfg.MemoryInterval, func() { _, _ = s.sampleMemory() })
	if err != nil {
		return fmt.Errorf("failed to schedule memory sampler: %w", err)
	}
	reportCron, err := s.newCron(s.cfg.ReportInterval, func() { _, _ = s.generateReport() })
	if err != nil {
		return fmt.Errorf("failed to schedule report generator: %w", err)
	}

	s.memoryCron, s.reportCron = memoryCron, reportCron
	s.memoryCron.Start()
	s.reportCron.Start()
	s.state = StateRunning
	s.stopWatch = context.AfterFunc(ctx, s.Stop)

	s.logger.Info("sampler started",
		"memory_interval", s.cfg.MemoryInterval,
		"report_interval", s.cfg.ReportInterval,
	)
	return nil
}

func (s *Sampler) newCron(every time.Duration, job func()) (*cron.Cron, error) {
	logger := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc("@every "+every.String(), job); err != nil {
		return nil, err
	}
	return c, nil
}

// Stop cancels both activities and waits for running jobs to finish. It is
// idempotent and safe to call before Start.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.cancel()

	if s.stopWatch != nil {
		s.stopWatch()
	}
	for _, c := range []*cron.Cron{s.memoryCron, s.reportCron} {
		if c != nil {
			<-c.Stop().Done()
		}
	}

	s.runMu.Lock()
	s.closed = true
	s.runMu.Unlock()

	if s.state == StateRunning {
		s.logger.Info("sampler stopped")
	}
	s.state = StateStopped
}

// State returns the lifecycle state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextRuns returns the next scheduled memory sample and report. Both are zero
// unless the sampler is running.
func (s *Sampler) NextRuns() (nextSample, nextReport time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return time.Time{}, time.Time{}
	}
	return nextRun(s.memoryCron), nextRun(s.reportCron)
}

func nextRun(c *cron.Cron) time.Time {
	entries := c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stats returns the number of completed cycles.
func (s *Sampler) Stats() Stats {
	return Stats{
		MemorySamples:  s.memorySamples.Load(),
		Reports:        s.reports.Load(),
		ReportFailures: s.reportFailures.Load(),
	}
}

// SampleNow runs one memory sample synchronously.
func (s *Sampler) SampleNow() (report.MemoryStats, error) {
	return s.sampleMemory()
}

// GenerateNow runs one report cycle synchronously. Failures are recorded the
// same way as scheduled ones.
func (s *Sampler) GenerateNow() (*report.UsageReport, error) {
	return s.generateReport()
}

func (s *Sampler) sampleMemory() (report.MemoryStats, error) {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	if s.closed || s.ctx.Err() != nil {
		return report.MemoryStats{}, ErrStopped
	}

	m := s.readMemory()
	for _, g := range []struct {
		name  string
		value uint64
	}{
		{MetricHeapTotal, m.HeapTotal},
		{MetricHeapUsed, m.HeapUsed},
		{MetricRSS, m.RSS},
		{MetricExternal, m.External},
	} {
		if err := s.reg.Set(g.name, nil, float64(g.value)); err != nil {
			s.logger.Error("failed to record memory gauge", "instrument", g.name, "error", err)
		}
	}
	s.memorySamples.Add(1)

	if ratio := m.HeapRatio(); ratio > s.cfg.MemoryWarningRatio {
		s.tracker.RecordSignal(limits.ThresholdSignal{
			Resource: ResourceHeap,
			LimitKey: "sampler.memory_warning_ratio",
			Usage:    float64(m.HeapUsed),
			Limit:    float64(m.HeapTotal),
			Severity: limits.SeverityWarning,
		})
	}
	return m, nil
}

func (s *Sampler) generateReport() (rep *report.UsageReport, err error) {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	if s.closed || s.ctx.Err() != nil {
		return nil, ErrStopped
	}

	defer func() {
		if r := recover(); r != nil {
			rep, err = nil, fmt.Errorf("%w: panic: %v", ErrReportGeneration, r)
		}
		if err != nil && !errors.Is(err, ErrStopped) {
			s.reportFailures.Add(1)
			s.logger.Error("usage report generation failed", "error", err)
			s.tracker.TrackError(ServiceReport, &usage.KindError{Kind: "report_generation", Err: err})
		}
	}()

	rep, err = s.generate(s.ctx)
	if s.ctx.Err() != nil {
		// Stopped while generating; the result is discarded.
		return nil, ErrStopped
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportGeneration, err)
	}
	if rep == nil {
		return nil, fmt.Errorf("%w: no report returned", ErrReportGeneration)
	}

	s.sink(rep)
	s.reports.Add(1)
	s.logger.Info("usage report generated",
		"id", rep.ID,
		"environment", rep.Environment,
		"uptime_seconds", rep.UptimeSeconds,
		"heap_used", rep.Memory.HeapUsed,
		"heap_total", rep.Memory.HeapTotal,
		"rss", rep.Memory.RSS,
		"external", rep.Memory.External,
		"top_resources", len(rep.TopResources),
	)
	return rep, nil
}
