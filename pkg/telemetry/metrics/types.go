package metrics

import (
	"errors"
	"fmt"
)

// Kind identifies the type of an instrument. It is fixed when the instrument
// is declared.
type Kind int

const (
	// KindCounter is a monotonically non-decreasing value.
	KindCounter Kind = iota + 1

	// KindGauge holds the last value set.
	KindGauge

	// KindHistogram buckets observations by pre-declared upper bounds.
	KindHistogram
)

// String returns the exposition type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "untyped"
	}
}

// Error types returned by the registry. They are always wrapped in an
// *InstrumentError; use errors.Is to match them.
var (
	// ErrDuplicateInstrument is returned when a name is declared again with a
	// different kind, label set or bucket layout.
	ErrDuplicateInstrument = errors.New("duplicate instrument")

	// ErrUnknownInstrument is returned when writing to a name that was never declared.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrWrongKind is returned when an operation does not match the instrument kind.
	ErrWrongKind = errors.New("wrong instrument kind")

	// ErrInvalidLabelCardinality is returned when the number of label values
	// does not match the declared label names.
	ErrInvalidLabelCardinality = errors.New("invalid label cardinality")

	// ErrNegativeDelta is returned when a counter increment is negative or NaN.
	ErrNegativeDelta = errors.New("counter delta must be non-negative")

	// ErrInvalidName is returned for metric or label names outside the
	// exposition grammar.
	ErrInvalidName = errors.New("invalid metric or label name")

	// ErrInvalidLabelValue is returned for label values that are not valid
	// UTF-8.
	ErrInvalidLabelValue = errors.New("label value is not valid UTF-8")

	// ErrInvalidBuckets is returned when histogram bounds are not strictly increasing.
	ErrInvalidBuckets = errors.New("invalid histogram buckets")

	// ErrSeriesLimit is returned when an instrument already holds the maximum
	// number of label combinations.
	ErrSeriesLimit = errors.New("series limit reached")
)

// InstrumentError adds the instrument name and the failed operation to one of
// the registry errors.
type InstrumentError struct {
	// Op is the registry operation (declare, increment, set, observe).
	Op string

	// Name is the instrument name.
	Name string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InstrumentError) Error() string {
	return fmt.Sprintf("metrics: %s %q: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error for error wrapping.
func (e *InstrumentError) Unwrap() error {
	return e.Err
}

func instrumentErr(op, name string, err error, detail string) error {
	if detail != "" {
		err = fmt.Errorf("%w: %s", err, detail)
	}
	return &InstrumentError{Op: op, Name: name, Err: err}
}

// Sample is a read-only copy of one labeled series.
type Sample struct {
	// Value is the counter or gauge value. For histograms it is zero.
	Value float64

	// Count is the number of histogram observations.
	Count uint64

	// Sum is the sum of histogram observations.
	Sum float64

	// Buckets holds the cumulative count for each declared upper bound.
	Buckets []uint64
}
