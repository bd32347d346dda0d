package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/meter/pkg/config"
	"mercator-hq/meter/pkg/monitor"
	"mercator-hq/meter/pkg/sampler"
	"mercator-hq/meter/pkg/server/middleware"
	"mercator-hq/meter/pkg/telemetry/health"
)

// Server is the HTTP server exposing metrics, health and usage endpoints.
type Server struct {
	config  *config.Config
	monitor *monitor.Monitor
	checker *health.Checker
	version health.VersionInfo
	logger  *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates a server for mon. The readiness endpoint reports the
// sampler state; more checks can be added through Checker.
func NewServer(cfg *config.Config, mon *monitor.Monitor, version health.VersionInfo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	checker := health.New(cfg.Health.CheckTimeout)
	checker.RegisterCheck("sampler", func(ctx context.Context) error {
		if state := mon.Sampler().State(); state != sampler.StateRunning {
			return fmt.Errorf("sampler is %s", state)
		}
		return nil
	})

	return &Server{
		config:  cfg,
		monitor: mon,
		checker: checker,
		version: version,
		logger:  logger.With("component", "server"),
	}
}

// Checker returns the readiness checker.
func (s *Server) Checker() *health.Checker {
	return s.checker
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server, bounded by the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.config.Metrics.Enabled {
		mux.Handle(s.config.Metrics.Path, s.monitor.MetricsHandler())
	}
	if s.config.Health.Enabled {
		mux.Handle(s.config.Health.Path, s.checker.LivenessHandler())
		mux.Handle(s.config.Health.ReadinessPath, s.checker.ReadinessHandler())
		mux.Handle(s.config.Health.VersionPath, health.VersionHandler(s.version))
	}
	mux.Handle(s.config.Report.Path, s.reportHandler())
	mux.Handle(s.config.Report.UsagePath, s.usageHandler())

	var handler http.Handler = mux
	handler = middleware.TrackingMiddleware(s.monitor.Tracker())(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	handler = s.monitor.Tracer().HTTPMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(s.logger)(handler)

	return handler
}
