package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpmetrics "securitypassport/internal/platform/metrics"
	"securitypassport/pkg/platform/httputil"
	"securitypassport/pkg/platform/middleware/auth"
	"securitypassport/pkg/platform/middleware/metadata"
	"securitypassport/pkg/platform/middleware/request"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type registrar interface {
	Register(r chi.Router)
}

type routerDeps struct {
	logger    *slog.Logger
	tokens    auth.JWTValidator
	db        pinger
	cache     pinger
	gatherer  prometheus.Gatherer
	metrics   *httpmetrics.Metrics
	passport  registrar
	overrides registrar
	// exportLimit wraps the export routes; nil leaves them unlimited.
	exportLimit func(http.Handler) http.Handler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID, request.Time, metadata.ClientMetadata)
	if d.metrics != nil {
		r.Use(d.metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/db", probe(d.logger, "database", d.db))
	if d.cache != nil {
		r.Get("/health/redis", probe(d.logger, "redis", d.cache))
	}
	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.tokens, d.logger))
		d.overrides.Register(r)
		r.Group(func(r chi.Router) {
			if d.exportLimit != nil {
				r.Use(d.exportLimit)
			}
			d.passport.Register(r)
		})
	})
	return r
}

// probe answers 503 when the dependency does not respond within two seconds.
func probe(logger *slog.Logger, name string, dep pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dep.PingContext(ctx); err != nil {
			logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
