// Package usage tracks cumulative consumption of constrained external
// resources (query bytes, AI tokens, cache items, API calls).
//
// Every Track call adds to the resource's running total, publishes the
// total on the resource_usage gauge and evaluates the limit table. Threshold
// signals are logged, counted in resource_threshold_signals_total and handed
// to registered SignalHandlers; they never fail the call.
//
//	tracker, err := usage.New(reg, table)
//	if err != nil {
//	    return err
//	}
//	start := time.Now()
//	rows, bytes := runQuery(ctx, sql)
//	_ = tracker.TrackQueryBytes(bytes, "select", start)
//
// Usage resets only when the process restarts.
package usage
