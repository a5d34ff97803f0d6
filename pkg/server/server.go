// Package server wires the HTTP surface of spec.md §6 on top of
// internal/pipeline: the welcome page at exactly "GET|POST /", the
// mirrored-request catch-all for everything else (including
// "/extdomains/<host>/..."), and an optional metrics/health listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zmirror/zmirror/internal/metrics"
	"github.com/zmirror/zmirror/internal/pipeline"
)

// Logger is the minimal structured-logging surface Server depends on; it is
// satisfied by *internal/logging.Logger without an adapter.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Config holds the listener addresses Server starts. Everything
// mirror-behavior-related lives in *config.Config instead, reached through
// the Pipeline.
type Config struct {
	// ListenAddr is the address the mirror's HTTP ingress binds to.
	ListenAddr string

	// MetricsEnabled starts a second listener serving /metrics and /health.
	MetricsEnabled bool
	MetricsAddr    string

	// ShutdownTimeout bounds how long Shutdown waits for in-flight requests.
	ShutdownTimeout time.Duration
}

// Server is the mirror's process-wide HTTP server: one listener for mirror
// traffic, one optional listener for Prometheus/health.
type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Collector
	logger   Logger

	httpServer    *http.Server
	metricsServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Server around an already-constructed Pipeline. collector may
// be nil, in which case the metrics listener is never started regardless of
// config.MetricsEnabled.
func New(cfg Config, p *pipeline.Pipeline, collector *metrics.Collector, logger Logger) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		pipeline: p,
		metrics:  collector,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.routeRoot)
	s.httpServer = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	return s
}

// routeRoot implements spec.md §6's top-level dispatch: the welcome page is
// the one request that must match "/" exactly; everything else, including
// "/extdomains/...", is a mirrored request.
func (s *Server) routeRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && (r.Method == http.MethodGet || r.Method == http.MethodPost) {
		s.serveWelcome(w, r)
		return
	}
	s.pipeline.HandleMirrored(w, r)
}

func (s *Server) serveWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Powered-By", "zmirror/"+welcomeVersion)
	w.WriteHeader(http.StatusOK)
	welcomePageTmpl.Execute(w, nil)
}

// Start runs the mirror listener and, if enabled, the metrics listener.
// It blocks until Shutdown cancels the server's context or the listener
// fails.
func (s *Server) Start() error {
	s.logger.Info("starting mirror server", "addr", s.config.ListenAddr)

	if s.config.MetricsEnabled && s.metrics != nil {
		s.startMetricsServer()
	}

	s.startCronTasks()

	errCh := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-s.ctx.Done():
		return nil
	}
}

func (s *Server) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.GetMetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	metricsServer := &http.Server{
		Addr:    s.config.MetricsAddr,
		Handler: mux,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("starting metrics server", "addr", s.config.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()

	s.metricsServer = metricsServer
}

// Shutdown gracefully stops both listeners, waiting up to
// config.ShutdownTimeout for in-flight requests to finish.
func (s *Server) Shutdown() error {
	s.logger.Info("initiating graceful shutdown")
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("mirror listener shutdown: %w", err)
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil && shutdownErr == nil {
			shutdownErr = fmt.Errorf("metrics listener shutdown: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("graceful shutdown completed")
		return shutdownErr
	case <-time.After(s.config.ShutdownTimeout):
		return fmt.Errorf("shutdown timeout after %s", s.config.ShutdownTimeout)
	}
}
