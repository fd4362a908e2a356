// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package control is the HTTP surface a supervisor uses to drive the
// runtime's session.
package control

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/khangzxrr/SafeExamBrowser/internal/bus"
	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/control/middleware"
	"github.com/khangzxrr/SafeExamBrowser/internal/health"
	"github.com/khangzxrr/SafeExamBrowser/internal/journal"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/khangzxrr/SafeExamBrowser/internal/supervisor"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/khangzxrr/SafeExamBrowser/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Controller is the session API the server exposes.
type Controller interface {
	Start(ctx context.Context) (*pipeline.Report, error)
	Resolve(ctx context.Context, topic text.Key, approved bool) (*pipeline.Report, error)
	Stop(ctx context.Context) (*pipeline.Report, error)
	Status() supervisor.Status
	Attempts(ctx context.Context, limit int) ([]journal.Attempt, error)
}

// Reloader re-reads the configuration; listeners of the reload drive the
// actual reconfiguration.
type Reloader interface {
	Reload(ctx context.Context) error
}

type Server struct {
	ctrl     Controller
	reloader Reloader
	events   bus.Bus
	health   *health.Manager
	router   chi.Router
	logger   zerolog.Logger
}

type ServerOption func(*Server)

// WithHealth serves probes from m instead of a manager without checks.
func WithHealth(m *health.Manager) ServerOption {
	return func(s *Server) { s.health = m }
}

// WithEvents enables GET /api/v1/events, fed from b.
func WithEvents(b bus.Bus) ServerOption {
	return func(s *Server) { s.events = b }
}

// NewServer builds the router. reloader may be nil, in which case
// reconfiguration requests are rejected.
func NewServer(ctrl Controller, reloader Reloader, cfg config.AppConfig, opts ...ServerOption) *Server {
	s := &Server{
		ctrl:     ctrl,
		reloader: reloader,
		logger:   log.WithComponent("control"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.NewManager(version.Version, func() string { return string(ctrl.Status().State) })
	}

	stack := middleware.StackConfig{
		EnableMetrics: true,
		EnableLogging: true,
		RateLimit:     cfg.Control.RateLimit,
		RateWindow:    cfg.Control.RateWindow,
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = cfg.LogService
	}
	r := middleware.NewRouter(stack)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed", "METHOD_NOT_ALLOWED", "")
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", s.handleStatus)
		r.Post("/session", s.handleStart)
		r.Delete("/session", s.handleStop)
		r.Post("/session/reconfigure", s.handleReconfigure)
		r.Post("/session/resolve", s.handleResolve)
		r.Get("/attempts", s.handleAttempts)
		r.Get("/events", s.handleEvents)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer wraps the handler with the runtime's listener timeouts. Writes
// get room for a full pass.
func (s *Server) HTTPServer(addr string, passTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      passTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
