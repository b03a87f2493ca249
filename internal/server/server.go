// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

// Package server exposes the desk router over HTTP: a chat endpoint, a
// direct data-query endpoint, health, Prometheus metrics and the OpenAPI
// document.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hosteldesk/deskbot/internal/provider"
	"github.com/hosteldesk/deskbot/internal/query"
	"github.com/hosteldesk/deskbot/internal/router"
	deskerr "github.com/hosteldesk/deskbot/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported in the OpenAPI document.
var Version = "0.1.0"

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    RateLimitConfig
}

// Chatter answers chat messages.
type Chatter interface {
	Route(ctx context.Context, req router.Request) router.Envelope
}

// QueryRunner compiles and runs a data question.
type QueryRunner interface {
	Run(ctx context.Context, question, defaults string) *query.Result
}

// HealthSource reports per-provider health.
type HealthSource interface {
	Health() map[string]provider.HealthMetrics
}

// Services are the handlers' collaborators. Chat is required; a nil Query
// makes /api/query answer 503, a nil Metrics serves the default registry
// and a nil Health reports no providers.
type Services struct {
	Chat    Chatter
	Query   QueryRunner
	Health  HealthSource
	Metrics prometheus.Gatherer
	Logger  *slog.Logger
}

// Server wraps a chi router with a huma API and an HTTP server.
type Server struct {
	router   chi.Router
	api      huma.API
	cfg      Config
	services Services
	logger   *slog.Logger
}

// New creates a Server with every route registered.
func New(cfg Config, svc Services) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, deskerr.New(deskerr.CodeServerConfigInvalid, "listen address is required")
	}
	if svc.Chat == nil {
		return nil, deskerr.New(deskerr.CodeServerConfigInvalid, "chat service is required")
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 120 * time.Second
	}
	if svc.Metrics == nil {
		svc.Metrics = prometheus.DefaultGatherer
	}
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(apiOnly(rateLimitMiddleware(cfg.RateLimit)))

	humaConfig := huma.DefaultConfig("Hostel Desk", Version)
	humaConfig.Info.Description = "Hostel information desk: grounded answers and read-only data queries"
	// Envelopes are returned as-is, without a $schema link field.
	humaConfig.CreateHooks = nil
	api := humachi.New(r, humaConfig)

	s := &Server{
		router:   r,
		api:      api,
		cfg:      cfg,
		services: svc,
		logger:   svc.Logger,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return deskerr.Wrapf(err, deskerr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return deskerr.Wrap(err, deskerr.CodeServerStartFailure, "serving http")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return deskerr.Wrap(err, deskerr.CodeServerShutdownFailure, "shutting down")
	}
	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// apiOnly applies mw to /api/ paths only.
func apiOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
