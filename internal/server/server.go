// Package server exposes the dashboard data over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	grpchealth "connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"k8s.io/utils/clock"

	"github.com/jonmartinstorm/repodash/internal/cache"
)

// DefaultTimeout bounds a whole request, analytics composition included.
const DefaultTimeout = 90 * time.Second

type Server struct {
	backends BackendFactory
	cache    *cache.Cache[[]byte]
	validate *validator.Validate
	clock    clock.PassiveClock
	timeout  time.Duration
	router   chi.Router
}

type Option func(*Server)

// WithCache sets the response cache. Entries hold encoded JSON bodies.
func WithCache(c *cache.Cache[[]byte]) Option {
	return func(s *Server) { s.cache = c }
}

func WithClock(c clock.PassiveClock) Option {
	return func(s *Server) { s.clock = c }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func New(backends BackendFactory, opts ...Option) *Server {
	s := &Server{
		backends: backends,
		validate: validator.New(),
		clock:    clock.RealClock{},
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New[[]byte](cache.WithClock[[]byte](s.clock))
	}
	s.router = s.routes()
	return s
}

// Handler returns the traced root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http.server")
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(LoggingMiddleware)
	r.Use(chimiddleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	r.Head("/health", s.handleHealth)
	hpath, hhandler := grpchealth.NewHandler(HealthChecker{})
	r.Handle(hpath+"*", hhandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Get("/test-token", s.handleTestToken)
		r.Route("/github", func(r chi.Router) {
			r.Get("/user", s.handleUser)
			r.Get("/repos", s.handleRepos)
			r.Get("/languages", s.handleLanguages)
			r.Get("/rate-limit", s.handleRateLimit)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/export", s.handleExport)
			r.Get("/share", s.handleShare)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
