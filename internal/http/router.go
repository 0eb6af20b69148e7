// Package http assembles the public router: middleware chain, health and
// metrics endpoints, and the authenticated API surface.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// Registrar is any handler that can mount its routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator
	Handlers  []Registrar
	// HealthChecks run on /healthz; any failure reports 503.
	HealthChecks map[string]func(ctx context.Context) error
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		for _, h := range cfg.Handlers {
			h.Register(r)
		}
	})

	return r
}

func healthHandler(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		result["status"] = "ok"
		for name, check := range checks {
			if err := check(ctx); err != nil {
				result[name] = err.Error()
				result["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
