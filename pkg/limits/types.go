package limits

import (
	"errors"
	"fmt"
)

// Threshold ratios of a limit at which signals are raised. Comparisons are
// strict: usage must exceed limit*ratio.
const (
	WarningRatio  = 0.80
	CriticalRatio = 0.95
)

// Severity classifies a threshold signal.
type Severity string

const (
	// SeverityWarning is raised when usage exceeds WarningRatio of the limit.
	SeverityWarning Severity = "warning"

	// SeverityCritical is raised when usage exceeds CriticalRatio of the limit.
	SeverityCritical Severity = "critical"
)

// String returns the severity name.
func (s Severity) String() string {
	return string(s)
}

// ThresholdSignal is a transient event describing a resource whose cumulative
// usage crossed a threshold of its configured limit.
type ThresholdSignal struct {
	// Resource is the tracked resource key (e.g., "bigquery.bytes").
	Resource string

	// LimitKey is the configuration key the limit was read from
	// (e.g., "queryEngine.maxBytesProcessed").
	LimitKey string

	// Usage is the cumulative usage that triggered the signal.
	Usage float64

	// Limit is the configured ceiling.
	Limit float64

	// Severity is warning or critical.
	Severity Severity
}

// Percentage returns usage as a percentage of the limit, or 0 when the limit
// is zero.
func (s ThresholdSignal) Percentage() float64 {
	if s.Limit == 0 {
		return 0
	}
	return s.Usage / s.Limit * 100
}

// Error types for the limit table.
var (
	// ErrConfigInvalid is returned when the limits configuration is invalid.
	ErrConfigInvalid = errors.New("invalid limits configuration")
)

// LimitError provides detailed context about a rejected limit entry.
type LimitError struct {
	// Key is the limit or alias key at fault.
	Key string

	// Reason describes what is wrong with the entry.
	Reason string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Key, e.Reason)
}

// Unwrap returns the underlying error for error wrapping.
func (e *LimitError) Unwrap() error {
	return e.Err
}
