// Package limits holds the resource limit table and threshold evaluation for
// Mercator Meter.
//
// # Overview
//
// A Table maps dot-namespaced resource keys to numeric ceilings. It is
// loaded once from configuration and never mutated, so it is shared between
// goroutines without locking.
//
// Tracked resources and configured limits do not always share a key: the
// tracker records "bigquery.bytes" while the limit is configured as
// "queryEngine.maxBytesProcessed". Aliases bind one to the other; see
// DefaultAliases.
//
// # Thresholds
//
// Evaluate compares cumulative usage with the limit:
//
//   - usage > 80% of the limit raises a warning signal
//   - usage > 95% of the limit additionally raises a critical signal
//
// Signals are values, not errors. Callers log and count them; they never
// fail the tracked operation.
//
// # Usage
//
//	table, err := limits.NewTable(cfg.Limits.Values,
//		limits.MergeAliases(cfg.Limits.Values, cfg.Limits.Aliases))
//	if err != nil {
//	    return err
//	}
//	for _, sig := range table.Evaluate("bigquery.bytes", 85000000) {
//	    log.Warn("limit threshold", "resource", sig.Resource, "severity", sig.Severity)
//	}
package limits
