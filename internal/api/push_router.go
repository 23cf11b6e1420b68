// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/farmmonitor/internal/middleware"
)

// NewPushRouter wires the farmpush routes.
//
//	GET  /ws                        WebSocket endpoint
//	POST /broadcast                 HTTP ingest bridge receiver
//	GET  /api/v1/realtime/data      latest snapshot for the polling fallback
//	POST /api/v1/realtime/alert     manual alert push
//	GET  /api/v1/health/{live,ready}
//	GET  /metrics
func NewPushRouter(h *PushHandler, mw *ChiMiddleware) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(mw.CORS())

	r.With(mw.RateLimitWebSocket(), middleware.PrometheusMetrics).Get("/ws", h.WebSocket)

	r.With(mw.RateLimitIngest(), middleware.PrometheusMetrics).Post("/broadcast", h.Broadcast)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/realtime", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/data", h.LatestData)
		r.Post("/alert", h.PushAlert)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	return r
}
