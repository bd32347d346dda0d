// Package server provides the HTTP server of Mercator Meter.
//
// # Routes
//
// Paths come from configuration; the defaults are:
//
//	GET /metrics       text exposition of the metric registry plus Go/process metrics
//	GET /health        liveness: {"status":"healthy","timestamp":"..."}
//	GET /ready         readiness: 503 unless the sampler is running
//	GET /version       build information
//	GET /usage/report  latest usage report (JSON, or ?format=text)
//	GET /usage         cumulative usage per resource with limits
//
// Every request is counted in api_requests_total and
// api_request_duration_seconds under its route pattern.
//
// # Basic Usage
//
//	mon, _ := monitor.New(cfg)
//	_ = mon.Start(ctx)
//	defer mon.Shutdown(context.Background())
//
//	srv := server.NewServer(cfg, mon, health.NewVersionInfo(version, commit, buildTime), logger)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled, then shuts the HTTP server down
// within cfg.Server.ShutdownTimeout.
package server
