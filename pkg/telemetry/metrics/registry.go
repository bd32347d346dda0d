package metrics

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/model"
)

// DefaultMaxSeries caps the label combinations held by a single instrument.
const DefaultMaxSeries = 10000

// labelSeparator joins label values into a series key. It cannot appear in
// valid UTF-8 and lookup rejects values that are not valid UTF-8, so distinct
// tuples never produce the same key.
const labelSeparator = "\xff"

// Registry owns a set of named, labeled instruments and renders them in the
// text exposition format.
//
// The instrument table is guarded by one RWMutex and every instrument guards
// its own series, so writes to different instruments never contend and a
// render only holds one instrument lock at a time.
//
// Example:
//
//	reg := metrics.NewRegistry()
//	_ = reg.Declare("jobs_total", metrics.KindCounter, "Jobs processed.", []string{"queue"})
//	_ = reg.Increment("jobs_total", []string{"default"}, 1)
//	fmt.Print(reg.Render())
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]*instrument
	order       []*instrument
	maxSeries   int
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxSeries sets the number of distinct label combinations an instrument
// may hold. Writes that would add a series beyond the cap fail with
// ErrSeriesLimit. Values <= 0 disable the cap.
func WithMaxSeries(n int) Option {
	return func(r *Registry) {
		r.maxSeries = n
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		instruments: make(map[string]*instrument),
		maxSeries:   DefaultMaxSeries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type instrument struct {
	name    string
	help    string
	kind    Kind
	labels  []string
	buckets []float64

	mu     sync.Mutex
	series map[string]*series
	order  []*series
}

type series struct {
	labelValues []string
	value       float64
	counts      []uint64
	count       uint64
	sum         float64
}

// Declare registers an instrument. Declaring a name again with the same kind,
// labels and buckets is a no-op; any other shape fails with
// ErrDuplicateInstrument.
//
// Histograms use prometheus.DefBuckets when no buckets are given. A trailing
// +Inf bound is dropped since the +Inf bucket is always rendered.
func (r *Registry) Declare(name string, kind Kind, help string, labelNames []string, buckets ...float64) error {
	const op = "declare"

	if !model.IsValidLegacyMetricName(name) {
		return instrumentErr(op, name, ErrInvalidName, "")
	}
	if kind < KindCounter || kind > KindHistogram {
		return instrumentErr(op, name, ErrWrongKind, fmt.Sprintf("kind %d", kind))
	}
	for _, l := range labelNames {
		if !model.LabelName(l).IsValidLegacy() || strings.HasPrefix(l, "__") {
			return instrumentErr(op, name, ErrInvalidName, fmt.Sprintf("label %q", l))
		}
		if kind == KindHistogram && l == "le" {
			return instrumentErr(op, name, ErrInvalidName, `label "le" is reserved for histograms`)
		}
	}
	if hasDuplicates(labelNames) {
		return instrumentErr(op, name, ErrInvalidName, "repeated label name")
	}

	var bounds []float64
	if kind == KindHistogram {
		var err error
		if bounds, err = normalizeBuckets(buckets); err != nil {
			return instrumentErr(op, name, err, "")
		}
	} else if len(buckets) > 0 {
		return instrumentErr(op, name, ErrInvalidBuckets, "buckets apply to histograms only")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.instruments[name]; ok {
		if existing.kind == kind && slices.Equal(existing.labels, labelNames) && slices.Equal(existing.buckets, bounds) {
			return nil
		}
		return instrumentErr(op, name, ErrDuplicateInstrument,
			fmt.Sprintf("declared as %s%v", existing.kind, existing.labels))
	}

	inst := &instrument{
		name:    name,
		help:    help,
		kind:    kind,
		labels:  slices.Clone(labelNames),
		buckets: bounds,
		series:  make(map[string]*series),
	}
	r.instruments[name] = inst
	r.order = append(r.order, inst)
	return nil
}

// Increment adds delta to a counter series. delta must be >= 0.
func (r *Registry) Increment(name string, labelValues []string, delta float64) error {
	const op = "increment"
	if delta < 0 || math.IsNaN(delta) {
		return instrumentErr(op, name, ErrNegativeDelta, fmt.Sprintf("delta %v", delta))
	}
	return r.write(op, name, KindCounter, labelValues, func(s *series, _ *instrument) {
		s.value += delta
	})
}

// Set stores value in a gauge series.
func (r *Registry) Set(name string, labelValues []string, value float64) error {
	return r.write("set", name, KindGauge, labelValues, func(s *series, _ *instrument) {
		s.value = value
	})
}

// Observe records value in a histogram series. Every bucket whose upper bound
// is >= value is incremented, as are the implicit +Inf bucket, the count and
// the sum.
func (r *Registry) Observe(name string, labelValues []string, value float64) error {
	return r.write("observe", name, KindHistogram, labelValues, func(s *series, inst *instrument) {
		for i, bound := range inst.buckets {
			if value <= bound {
				s.counts[i]++
			}
		}
		s.count++
		s.sum += value
	})
}

// Sample returns a copy of one series. The second result is false when the
// series has never been written.
func (r *Registry) Sample(name string, labelValues []string) (Sample, bool, error) {
	inst, err := r.lookup("sample", name, 0, labelValues)
	if err != nil {
		return Sample{}, false, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	s, ok := inst.series[seriesKey(labelValues)]
	if !ok {
		return Sample{}, false, nil
	}
	return Sample{
		Value:   s.value,
		Count:   s.count,
		Sum:     s.sum,
		Buckets: slices.Clone(s.counts),
	}, true, nil
}

// Names returns the declared instrument names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	for i, inst := range r.order {
		names[i] = inst.name
	}
	return names
}

// Reset clears the series of every instrument. Declarations are kept, so the
// registry stays usable after a reset.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.order {
		inst.mu.Lock()
		inst.series = make(map[string]*series)
		inst.order = nil
		inst.mu.Unlock()
	}
}

func (r *Registry) write(op, name string, kind Kind, labelValues []string, apply func(*series, *instrument)) error {
	inst, err := r.lookup(op, name, kind, labelValues)
	if err != nil {
		return err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	key := seriesKey(labelValues)
	s, ok := inst.series[key]
	if !ok {
		if r.maxSeries > 0 && len(inst.series) >= r.maxSeries {
			return instrumentErr(op, name, ErrSeriesLimit, fmt.Sprintf("%d series", r.maxSeries))
		}
		s = &series{labelValues: slices.Clone(labelValues)}
		if inst.kind == KindHistogram {
			s.counts = make([]uint64, len(inst.buckets))
		}
		inst.series[key] = s
		inst.order = append(inst.order, s)
	}
	apply(s, inst)
	return nil
}

// lookup resolves name and checks kind (when non-zero), label cardinality and
// label value encoding.
func (r *Registry) lookup(op, name string, kind Kind, labelValues []string) (*instrument, error) {
	r.mu.RLock()
	inst, ok := r.instruments[name]
	r.mu.RUnlock()

	if !ok {
		return nil, instrumentErr(op, name, ErrUnknownInstrument, "")
	}
	if kind != 0 && inst.kind != kind {
		return nil, instrumentErr(op, name, ErrWrongKind, fmt.Sprintf("instrument is a %s", inst.kind))
	}
	if len(labelValues) != len(inst.labels) {
		return nil, instrumentErr(op, name, ErrInvalidLabelCardinality,
			fmt.Sprintf("got %d values for labels %v", len(labelValues), inst.labels))
	}
	for i, v := range labelValues {
		if !utf8.ValidString(v) {
			return nil, instrumentErr(op, name, ErrInvalidLabelValue,
				fmt.Sprintf("label %q: %q", inst.labels[i], v))
		}
	}
	return inst, nil
}

func seriesKey(labelValues []string) string {
	return strings.Join(labelValues, labelSeparator)
}

func normalizeBuckets(buckets []float64) ([]float64, error) {
	if len(buckets) == 0 {
		return slices.Clone(prometheus.DefBuckets), nil
	}
	bounds := slices.Clone(buckets)
	if math.IsInf(bounds[len(bounds)-1], 1) {
		bounds = bounds[:len(bounds)-1]
	}
	for i, b := range bounds {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, fmt.Errorf("%w: bound %v", ErrInvalidBuckets, b)
		}
		if i > 0 && b <= bounds[i-1] {
			return nil, fmt.Errorf("%w: bounds must be strictly increasing", ErrInvalidBuckets)
		}
	}
	return bounds, nil
}

func hasDuplicates(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return true
		}
		seen[n] = struct{}{}
	}
	return false
}
