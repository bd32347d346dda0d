package metrics

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil/promlint"
)

// TestRegistry_Declare tests instrument declaration and redeclaration
func TestRegistry_Declare(t *testing.T) {
	tests := []struct {
		name    string
		first   func(*Registry) error
		second  func(*Registry) error
		wantErr error
	}{
		{
			name: "identical redeclaration is a no-op",
			first: func(r *Registry) error {
				return r.Declare("jobs_total", KindCounter, "Jobs.", []string{"queue"})
			},
			second: func(r *Registry) error {
				return r.Declare("jobs_total", KindCounter, "Jobs.", []string{"queue"})
			},
		},
		{
			name: "different kind",
			first: func(r *Registry) error {
				return r.Declare("jobs_total", KindCounter, "Jobs.", []string{"queue"})
			},
			second: func(r *Registry) error {
				return r.Declare("jobs_total", KindGauge, "Jobs.", []string{"queue"})
			},
			wantErr: ErrDuplicateInstrument,
		},
		{
			name: "different labels",
			first: func(r *Registry) error {
				return r.Declare("jobs_total", KindCounter, "Jobs.", []string{"queue"})
			},
			second: func(r *Registry) error {
				return r.Declare("jobs_total", KindCounter, "Jobs.", []string{"queue", "worker"})
			},
			wantErr: ErrDuplicateInstrument,
		},
		{
			name: "different buckets",
			first: func(r *Registry) error {
				return r.Declare("op_seconds", KindHistogram, "Op.", nil, 0.1, 1)
			},
			second: func(r *Registry) error {
				return r.Declare("op_seconds", KindHistogram, "Op.", nil, 0.1, 2)
			},
			wantErr: ErrDuplicateInstrument,
		},
		{
			name: "invalid metric name",
			first: func(r *Registry) error {
				return r.Declare("1jobs", KindCounter, "Jobs.", nil)
			},
			wantErr: ErrInvalidName,
		},
		{
			name: "reserved label on histogram",
			first: func(r *Registry) error {
				return r.Declare("op_seconds", KindHistogram, "Op.", []string{"le"})
			},
			wantErr: ErrInvalidName,
		},
		{
			name: "repeated label",
			first: func(r *Registry) error {
				return r.Declare("jobs_total", KindCounter, "Jobs.", []string{"queue", "queue"})
			},
			wantErr: ErrInvalidName,
		},
		{
			name: "unsorted buckets",
			first: func(r *Registry) error {
				return r.Declare("op_seconds", KindHistogram, "Op.", nil, 1, 0.5)
			},
			wantErr: ErrInvalidBuckets,
		},
		{
			name: "buckets on a gauge",
			first: func(r *Registry) error {
				return r.Declare("depth", KindGauge, "Depth.", nil, 1, 2)
			},
			wantErr: ErrInvalidBuckets,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := tt.first(r)
			if err == nil && tt.second != nil {
				err = tt.second(r)
			}

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var ie *InstrumentError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *InstrumentError, got %T", err)
			}
			if ie.Op != "declare" {
				t.Errorf("expected op declare, got %q", ie.Op)
			}
		})
	}
}

// TestRegistry_WriteErrors tests the failure modes of writes
func TestRegistry_WriteErrors(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "jobs_total", KindCounter, []string{"queue"})
	mustDeclare(t, r, "depth", KindGauge, []string{"queue"})
	mustDeclare(t, r, "op_seconds", KindHistogram, []string{"op"})

	tests := []struct {
		name    string
		write   func() error
		wantErr error
	}{
		{"unknown instrument", func() error { return r.Increment("missing_total", nil, 1) }, ErrUnknownInstrument},
		{"set on counter", func() error { return r.Set("jobs_total", []string{"a"}, 1) }, ErrWrongKind},
		{"increment on gauge", func() error { return r.Increment("depth", []string{"a"}, 1) }, ErrWrongKind},
		{"observe on gauge", func() error { return r.Observe("depth", []string{"a"}, 1) }, ErrWrongKind},
		{"too few labels", func() error { return r.Increment("jobs_total", nil, 1) }, ErrInvalidLabelCardinality},
		{"too many labels", func() error { return r.Set("depth", []string{"a", "b"}, 1) }, ErrInvalidLabelCardinality},
		{"histogram labels", func() error { return r.Observe("op_seconds", []string{}, 1) }, ErrInvalidLabelCardinality},
		{"negative delta", func() error { return r.Increment("jobs_total", []string{"a"}, -1) }, ErrNegativeDelta},
		{"NaN delta", func() error { return r.Increment("jobs_total", []string{"a"}, math.NaN()) }, ErrNegativeDelta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.write()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, ok, _ := r.Sample("jobs_total", []string{"a"}); ok {
		t.Error("failed writes must not create series")
	}
}

// TestRegistry_CounterAndGauge tests counter accumulation and gauge last-value semantics
func TestRegistry_CounterAndGauge(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "jobs_total", KindCounter, []string{"queue"})
	mustDeclare(t, r, "depth", KindGauge, []string{"queue"})

	for _, d := range []float64{1, 2.5, 0} {
		if err := r.Increment("jobs_total", []string{"a"}, d); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range []float64{10, -3, 7} {
		if err := r.Set("depth", []string{"a"}, v); err != nil {
			t.Fatal(err)
		}
	}

	s, ok, err := r.Sample("jobs_total", []string{"a"})
	if err != nil || !ok {
		t.Fatalf("sample: ok=%v err=%v", ok, err)
	}
	if s.Value != 3.5 {
		t.Errorf("expected counter 3.5, got %v", s.Value)
	}

	s, _, _ = r.Sample("depth", []string{"a"})
	if s.Value != 7 {
		t.Errorf("expected gauge 7, got %v", s.Value)
	}
}

// TestRegistry_Observe tests cumulative histogram buckets
func TestRegistry_Observe(t *testing.T) {
	r := NewRegistry()
	if err := r.Declare("op_seconds", KindHistogram, "Op latency.", []string{"op"}, 0.1, 0.5, 1); err != nil {
		t.Fatal(err)
	}

	for _, v := range []float64{0.25, 0.5, 2} {
		if err := r.Observe("op_seconds", []string{"read"}, v); err != nil {
			t.Fatal(err)
		}
	}

	s, _, _ := r.Sample("op_seconds", []string{"read"})
	want := []uint64{0, 2, 2}
	for i := range want {
		if s.Buckets[i] != want[i] {
			t.Errorf("bucket %d: expected %d, got %d", i, want[i], s.Buckets[i])
		}
	}
	if s.Count != 3 {
		t.Errorf("expected count 3, got %d", s.Count)
	}
	if s.Sum != 2.75 {
		t.Errorf("expected sum 2.75, got %v", s.Sum)
	}
}

// TestRegistry_Render tests the exposition text layout
func TestRegistry_Render(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "resource_usage", KindGauge, []string{"resource", "service"})
	if err := r.Declare("op_seconds", KindHistogram, "Op latency.", []string{"op"}, 0.1, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	mustDeclare(t, r, "idle_total", KindCounter, nil)

	_ = r.Set("resource_usage", []string{"cache.items", "default"}, 12)
	_ = r.Set("resource_usage", []string{"bigquery.bytes", "select"}, 85000000)
	_ = r.Observe("op_seconds", []string{"read"}, 0.25)
	_ = r.Observe("op_seconds", []string{"read"}, 2)

	want := strings.Join([]string{
		"# HELP resource_usage resource_usage help.",
		"# TYPE resource_usage gauge",
		`resource_usage{resource="cache.items",service="default"} 12`,
		`resource_usage{resource="bigquery.bytes",service="select"} 85000000`,
		"# HELP op_seconds Op latency.",
		"# TYPE op_seconds histogram",
		`op_seconds_bucket{op="read",le="0.1"} 0`,
		`op_seconds_bucket{op="read",le="0.5"} 1`,
		`op_seconds_bucket{op="read",le="1"} 1`,
		`op_seconds_bucket{op="read",le="+Inf"} 2`,
		`op_seconds_sum{op="read"} 2.25`,
		`op_seconds_count{op="read"} 2`,
		"# HELP idle_total idle_total help.",
		"# TYPE idle_total counter",
		"",
	}, "\n")

	got := r.Render()
	if got != want {
		t.Errorf("unexpected render:\n--- got\n%s--- want\n%s", got, want)
	}
	if again := r.Render(); again != got {
		t.Error("render is not deterministic")
	}
}

// TestRegistry_RenderEscaping tests label value and help escaping
func TestRegistry_RenderEscaping(t *testing.T) {
	r := NewRegistry()
	if err := r.Declare("odd_total", KindCounter, "Back\\slash\nnewline.", []string{"v"}); err != nil {
		t.Fatal(err)
	}
	_ = r.Increment("odd_total", []string{"a\"b\\c\nd"}, 1)

	out := r.Render()
	if !strings.Contains(out, `# HELP odd_total Back\\slash\nnewline.`) {
		t.Errorf("help not escaped:\n%s", out)
	}
	if !strings.Contains(out, `odd_total{v="a\"b\\c\nd"} 1`) {
		t.Errorf("label value not escaped:\n%s", out)
	}
}

// TestRegistry_RenderLint checks the output against the Prometheus linter
func TestRegistry_RenderLint(t *testing.T) {
	r := NewRegistry()
	if err := r.Declare("requests_total", KindCounter, "Requests served.", []string{"code"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Declare("request_duration_seconds", KindHistogram, "Request latency.", []string{"code"}, 0.1, 1); err != nil {
		t.Fatal(err)
	}
	_ = r.Increment("requests_total", []string{"200"}, 3)
	_ = r.Observe("request_duration_seconds", []string{"200"}, 0.2)

	problems, err := promlint.New(strings.NewReader(r.Render())).Lint()
	if err != nil {
		t.Fatalf("render is not parseable: %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint %s: %s", p.Metric, p.Text)
	}
}

// TestRegistry_Reset tests that reset clears series but keeps declarations
func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "jobs_total", KindCounter, []string{"queue"})
	_ = r.Increment("jobs_total", []string{"a"}, 5)

	r.Reset()

	if strings.Contains(r.Render(), `jobs_total{queue="a"}`) {
		t.Error("series survived reset")
	}
	if err := r.Increment("jobs_total", []string{"a"}, 1); err != nil {
		t.Fatalf("registry unusable after reset: %v", err)
	}
	s, _, _ := r.Sample("jobs_total", []string{"a"})
	if s.Value != 1 {
		t.Errorf("expected 1 after reset, got %v", s.Value)
	}
}

// TestRegistry_SeriesLimit tests the per-instrument series cap
func TestRegistry_SeriesLimit(t *testing.T) {
	r := NewRegistry(WithMaxSeries(2))
	mustDeclare(t, r, "jobs_total", KindCounter, []string{"queue"})

	_ = r.Increment("jobs_total", []string{"a"}, 1)
	_ = r.Increment("jobs_total", []string{"b"}, 1)

	if err := r.Increment("jobs_total", []string{"c"}, 1); !errors.Is(err, ErrSeriesLimit) {
		t.Errorf("expected ErrSeriesLimit, got %v", err)
	}
	if err := r.Increment("jobs_total", []string{"a"}, 1); err != nil {
		t.Errorf("existing series must stay writable: %v", err)
	}
}

// TestRegistry_LabelTupleKeys tests that distinct tuples never share a series
func TestRegistry_LabelTupleKeys(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "pairs_total", KindCounter, []string{"a", "b"})

	_ = r.Increment("pairs_total", []string{"x,y", "z"}, 1)
	_ = r.Increment("pairs_total", []string{"x", "y,z"}, 2)

	s1, _, _ := r.Sample("pairs_total", []string{"x,y", "z"})
	s2, _, _ := r.Sample("pairs_total", []string{"x", "y,z"})
	if s1.Value != 1 || s2.Value != 2 {
		t.Errorf("tuples collided: %v %v", s1.Value, s2.Value)
	}
}

// TestRegistry_InvalidUTF8LabelValues tests that values which could defeat
// the series key encoding are rejected
func TestRegistry_InvalidUTF8LabelValues(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "pairs_total", KindCounter, []string{"a", "b"})

	err1 := r.Increment("pairs_total", []string{"x\xff", "y"}, 1)
	err2 := r.Increment("pairs_total", []string{"x", "\xffy"}, 2)
	for _, err := range []error{err1, err2} {
		if !errors.Is(err, ErrInvalidLabelValue) {
			t.Errorf("expected ErrInvalidLabelValue, got %v", err)
		}
	}

	if err := r.Increment("pairs_total", []string{"x", "y"}, 3); err != nil {
		t.Fatal(err)
	}
	out := r.Render()
	if strings.Count(out, "pairs_total{") != 1 || !strings.Contains(out, `pairs_total{a="x",b="y"} 3`) {
		t.Errorf("unexpected render:\n%s", out)
	}
	if _, _, err := r.Sample("pairs_total", []string{"x\xff", "y"}); !errors.Is(err, ErrInvalidLabelValue) {
		t.Errorf("Sample: expected ErrInvalidLabelValue, got %v", err)
	}
}

// TestRegistry_Names tests that names are listed in declaration order
func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "zeta_total", KindCounter, nil)
	mustDeclare(t, r, "alpha", KindGauge, []string{"k"})
	mustDeclare(t, r, "zeta_total", KindCounter, nil)

	got := r.Names()
	if len(got) != 2 || got[0] != "zeta_total" || got[1] != "alpha" {
		t.Errorf("Names() = %v", got)
	}
}

// TestRegistry_ConcurrentWrites tests concurrent increments and renders
func TestRegistry_ConcurrentWrites(t *testing.T) {
	r := NewRegistry()
	mustDeclare(t, r, "jobs_total", KindCounter, []string{"queue"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Increment("jobs_total", []string{"a"}, 1)
				if j%25 == 0 {
					_ = r.Render()
				}
			}
		}()
	}
	wg.Wait()

	s, _, _ := r.Sample("jobs_total", []string{"a"})
	if s.Value != 5000 {
		t.Errorf("expected 5000, got %v", s.Value)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{85000000, "85000000"},
		{0, "0"},
		{0.25, "0.25"},
		{1e21, "1000000000000000000000"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func mustDeclare(t *testing.T, r *Registry, name string, kind Kind, labels []string) {
	t.Helper()
	if err := r.Declare(name, kind, name+" help.", labels); err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
}
