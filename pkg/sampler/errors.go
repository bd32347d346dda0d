package sampler

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a running sampler.
	ErrAlreadyStarted = errors.New("sampler already started")

	// ErrStopped is returned once the sampler has been stopped. A stopped
	// sampler cannot be restarted; create a new one.
	ErrStopped = errors.New("sampler stopped")

	// ErrReportGeneration wraps failures of the report generator.
	ErrReportGeneration = errors.New("usage report generation failed")
)
