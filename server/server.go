// Package server hosts the aquarium over HTTP: a parameter form with the
// live scene, bare fragments and SVG posters for embedding, and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/pthm-cable/aquarium/config"
	"github.com/pthm-cable/aquarium/scene"
	"github.com/pthm-cable/aquarium/telemetry"
)

const (
	shutdownTimeout = 5 * time.Second
	tracerName      = "github.com/pthm-cable/aquarium/server"
)

// Server serves scenes built by a Composer. Every request builds its own
// scene; the only shared state is metrics, perf timings and rate limits.
type Server struct {
	cfg      *config.Config
	composer *scene.Composer
	perf     *telemetry.PerfCollector
	limiter  *IPRateLimiter
	registry *prometheus.Registry
	metrics  *Metrics
	tracer   trace.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithTracerProvider traces scene builds through tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// New creates a server. perf may be nil.
func New(cfg *config.Config, composer *scene.Composer, perf *telemetry.PerfCollector, opts ...Option) *Server {
	if perf == nil {
		perf = telemetry.NewPerfCollector(0)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:      cfg,
		composer: composer,
		perf:     perf,
		limiter:  NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
		registry: reg,
		metrics:  NewMetrics(reg),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/palettes", s.handlePalettes)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.limiter, s.cfg.Derived.TrustedProxies, s.metrics.rateLimited.Inc))
		r.Get("/", s.handleIndex)
		r.Post("/", s.handleUpload)
		r.Get("/scene", s.handleFragment)
		r.Get("/scene.svg", s.handlePoster)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	s.perf.Stats().LogStats()
	return nil
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"client", clientIP(r, s.cfg.Derived.TrustedProxies),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
