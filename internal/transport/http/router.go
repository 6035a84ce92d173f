// Package httptransport assembles the HTTP surface: public health and metrics
// endpoints plus the authenticated domain routes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"siwarga/internal/platform/metrics"
	"siwarga/pkg/platform/httputil"
	"siwarga/pkg/platform/middleware/auth"
	request "siwarga/pkg/platform/middleware/request"
)

// Routes is implemented by every domain handler.
type Routes interface {
	Register(r chi.Router)
}

type Config struct {
	Logger    *slog.Logger
	Validator auth.JWTValidator
	// Metrics is optional; without it requests are not instrumented.
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Health reports readiness of backing services. Nil always reports ok.
	Health func(r *http.Request) error
}

// NewRouter mounts routes behind bearer-token auth.
func NewRouter(cfg Config, routes ...Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(req); err != nil {
				cfg.Logger.WarnContext(req.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(cfg.Validator, cfg.Logger))
		for _, routes := range routes {
			routes.Register(r)
		}
	})
	return r
}
