// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package middleware provides chi-compatible HTTP middleware shared by the
push server and the web application.

Key Components:

  - RequestID: honors or generates X-Request-ID and stores it where
    logging.Ctx finds it
  - PrometheusMetrics: request count, latency and in-flight gauge labelled
    by chi route pattern
  - AccessLog: one structured log line per request

All three follow the func(http.Handler) http.Handler shape:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

The response writer wrapper implements http.Hijacker and http.Flusher so the
WebSocket upgrade on /ws works behind the metrics layer.
*/
package middleware
