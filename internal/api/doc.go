// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package api provides the HTTP surfaces of farmpush and farmweb, built on the
chi router.

Push tier (NewPushRouter):

  - GET /ws upgrades to a WebSocket and registers the connection with the
    broadcast server
  - POST /broadcast is the ingest bridge receiver; it accepts a sensor_data
    envelope or a bare reading and answers with the clients reached
  - GET /api/v1/realtime/data serves the in-memory snapshot
  - POST /api/v1/realtime/alert pushes a manual alert

Web tier (NewWebRouter):

  - POST /api/v1/sensors/data validates, stores, invalidates caches and
    forwards through the bridge; always 201 once stored
  - GET /api/v1/realtime/data, /chart and /alerts serve the read side,
    behind JWT authentication when enabled

Every response uses the models.APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "BAD_REQUEST", "message": "..."}, "meta": {...}}

Both routers share the same middleware order: request ID, real IP, panic
recovery, access log, CORS, then per-group rate limits, security headers and
Prometheus instrumentation.
*/
package api
