// Package sampler runs the periodic activities of the usage monitor: a
// short-period memory sampler feeding the process memory gauges and a
// long-period usage report generator.
//
// Lifecycle:
//
//	stopped --Start--> running --Stop--> stopped
//
// There is no restart. Stop deterministically ends both activities; once it
// returns no scheduled or manual cycle writes anything.
package sampler
