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

// Authenticator guards the read endpoints. auth.Middleware satisfies it.
type Authenticator interface {
	Authenticate(next http.Handler) http.Handler
}

// NewWebRouter wires the farmweb routes.
//
//	POST /api/v1/sensors/data       device ingest (validated, stored, bridged)
//	GET  /api/v1/realtime/data      latest value per sensor type
//	GET  /api/v1/realtime/chart     history for charts
//	GET  /api/v1/realtime/alerts    alerts over the latest values
//	GET  /api/v1/health/{live,ready}
//	GET  /metrics
//
// authn may be nil, in which case the read endpoints are open.
func NewWebRouter(h *WebHandler, mw *ChiMiddleware, authn Authenticator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(mw.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/sensors", func(r chi.Router) {
		r.Use(mw.RateLimitIngest())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Post("/data", h.IngestReading)
	})

	r.Route("/api/v1/realtime", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		if authn != nil {
			r.Use(authn.Authenticate)
		}
		r.Get("/data", h.LatestData)
		r.Get("/chart", h.Chart)
		r.Get("/alerts", h.Alerts)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	return r
}
