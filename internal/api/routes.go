// Package api serves quality models and assessments over HTTP.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds what the handlers share. cfg is the base configuration every
// request clones before applying its query parameters.
type Server struct {
	cfg     *contract.Config
	deps    core.Deps
	version string
	metrics *Metrics
	runMu   sync.Mutex // one publishing run at a time
	now     func() time.Time
}

// NewServer creates a server. reg receives the API collectors and is served on /metrics.
func NewServer(cfg *contract.Config, deps core.Deps, version string, reg *prometheus.Registry) *Server {
	return &Server{
		cfg:     cfg,
		deps:    deps,
		version: version,
		metrics: NewMetrics(reg),
		now:     time.Now,
	}
}

// NewRouter builds the HTTP handler for s, exposing reg on /metrics.
func NewRouter(s *Server, reg *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()
	InitRoute(r, s)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

// InitRoute registers middleware and every API route on r.
func InitRoute(r *chi.Mux, s *Server) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.Health)

	r.Route("/models", func(r chi.Router) {
		r.Get("/", s.ListModels)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.GetModel)
			r.Get("/assessment", s.GetAssessment)
			r.Get("/report", s.GetReport)
			r.Post("/runs", s.CreateRun)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, http.StatusNotFound, "route not found")
	})
}
