package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/saga-graph/pkg/api/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Metrics(s.metrics))
	r.Use(middleware.SecurityHeaders(s.cfg.HSTS))
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.BodySizeLimit(s.cfg.MaxBodyBytes))

	r.Get("/health", s.health.HTTPHandler())
	r.Get("/ready", s.health.ReadinessHandler())
	r.Get("/live", s.health.LivenessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	if s.graphql != nil {
		r.Method(http.MethodPost, "/graphql", s.graphql)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.With(middleware.RateLimit(s.limiter, nil)).Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/retry", s.handleRetry)

			r.Post("/layout", s.handleSwitchLayout)
			r.Post("/layout/save", s.handleSaveLayout)
			r.Post("/layout/restore", s.handleRestoreLayout)

			r.Post("/path", s.handlePath)
			r.Get("/centrality", s.handleCentrality)
			r.Get("/communities", s.handleCommunities)

			r.Get("/render", s.handleRender)
			r.Get("/render.{format}", s.handleRender)
		})
	})

	return r
}
