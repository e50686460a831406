// Package api exposes the mindtrace engine over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rcliao/mindtrace/internal/metrics"
)

// NewRouter builds the chi router with middleware and every route. A nil or
// disabled metrics manager leaves /metrics unrouted.
func NewRouter(logger zerolog.Logger, h *Handlers, m *metrics.Manager) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery)
	if m.Enabled() {
		r.Use(Metrics(m))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "no such route", nil)
	})

	RegisterRoutes(r, h)
	if m.Enabled() {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	return r
}

// RegisterRoutes mounts the health check and the v1 API on r.
func RegisterRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Put("/sessions/{id}/tags", h.UpdateTags)
		r.Post("/analyze", h.Analyze)
		r.Post("/guard", h.Guard)

		r.Route("/users/{user}", func(r chi.Router) {
			r.Post("/reflections", h.Reflect)
			r.Get("/plan", h.Plan)
			r.Get("/patterns", h.Patterns)
		})
	})
}
