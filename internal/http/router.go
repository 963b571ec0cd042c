// Package httpapi assembles the HTTP surface: middleware chain, health and
// metrics endpoints, and the authenticated record routes. Transport concerns
// stay here so handlers and services remain HTTP-light.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casefile/internal/platform/middleware"
	"casefile/internal/platform/ratelimit"
	"casefile/internal/record/handler"
)

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// NewRouter wires all endpoints. Record routes sit behind bearer-token
// authentication and per-user rate limiting; health and metrics are open. A
// nil limiter disables limiting.
func NewRouter(records *handler.Handler, validator middleware.JWTValidator, limiter ratelimit.Limiter, logger *slog.Logger, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", handleHealth(checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(validator, logger))
		if limiter != nil {
			protected.Use(middleware.RateLimit(limiter, logger))
		}
		records.Register(protected)
	})

	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	}
}
