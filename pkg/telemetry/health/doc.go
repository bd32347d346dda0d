// Package health provides the liveness, readiness and version endpoints of
// Mercator Meter.
//
// # Endpoints
//
//   - /health: liveness, always 200 with {"status":"healthy","timestamp":...}
//   - /ready: readiness, runs the registered component checks
//   - /version: build information
//
// # Usage
//
//	checker := health.New(cfg.Health.CheckTimeout)
//	checker.RegisterCheck("sampler", func(ctx context.Context) error {
//	    if mon.Sampler().State() != sampler.StateRunning {
//	        return errors.New("sampler is not running")
//	    }
//	    return nil
//	})
//
//	mux.Handle(cfg.Health.Path, checker.LivenessHandler())
//	mux.Handle(cfg.Health.ReadinessPath, checker.ReadinessHandler())
//	mux.Handle(cfg.Health.VersionPath, health.VersionHandler(health.NewVersionInfo(version, commit, buildTime)))
//
// Readiness checks run concurrently, each bounded by the checker's timeout.
// A check that exceeds it is reported unhealthy with "health check timeout".
package health
