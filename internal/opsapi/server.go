package opsapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikvoid/nndb-core/internal/coordinator"
	"github.com/nikvoid/nndb-core/internal/platform/constants"
)

// Server wraps the chi router and the [http.Server] for the ops-only
// surface, mirroring the teacher's api.Server but without the domain route
// groups — spec.md §1 excludes the REST API over elements/tags/search.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// Deps bundles Server's construction-time dependencies.
type Deps struct {
	Port         string
	Health       HealthDependencies
	Procedures   *coordinator.Registry
	TriggerImport func(context.Context)
	BaseCtx      context.Context
	Logger       *slog.Logger
}

// NewServer builds the ops router: health probes, procedure status +
// manual-import trigger, and a Prometheus /metrics endpoint.
func NewServer(deps Deps) *Server {
	liveness, readiness := NewHealthHandlers(deps.Health, deps.Logger)
	procs := NewProcedureHandler(deps.BaseCtx, deps.Procedures, deps.TriggerImport)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(structuredLogger(deps.Logger))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(chimw.Recoverer)

	r.Get("/health", liveness)
	r.Get("/ready", readiness)
	r.Get("/procedures", procs.status)
	r.Post("/procedures/import", procs.triggerImport)
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		log: deps.Logger,
		httpServer: &http.Server{
			Addr:              ":" + deps.Port,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// ListenAndServe starts the ops HTTP server. It blocks until the server is
// closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("ops server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// structuredLogger logs each request's method, path, status, and duration
// through slog, the same shape as the teacher's middleware.StructuredLogger
// pared down to what the ops surface needs (no request-id-from-context
// plumbing beyond what chimw.RequestID already sets on the response header).
func structuredLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("ops request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
