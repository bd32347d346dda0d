// Package monitor assembles the usage monitoring subsystem.
//
// A Monitor owns one metric registry, the immutable limit table, the usage
// tracker and the periodic sampler, and keeps the most recent usage report.
// Collaborators receive the Monitor (or its Tracker) explicitly:
//
//	mon, err := monitor.New(cfg, monitor.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := mon.Start(ctx); err != nil {
//	    return err
//	}
//	defer mon.Shutdown(context.Background())
//
//	start := time.Now()
//	rows, bytes := runQuery()
//	mon.Tracker().TrackQueryBytes(bytes, "select", start)
//
// Shutdown stops the sampler before resetting the registry, so no gauge or
// report is written afterwards.
package monitor
