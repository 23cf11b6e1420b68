// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Farmweb is the web tier: it stores device readings and serves the read
endpoints the dashboards poll.

Every accepted reading is validated, written to the reading store (SQLite or
Postgres), and then forwarded to farmpush through the ingest bridge. A bridge
failure is logged and never fails the ingest request.

# Process Tree

	RootSupervisor ("farmweb")
	├── ingest-layer
	│   └── store retention (database.history_max_hours)
	└── api-layer
	    └── HTTP server

# Endpoints

	POST /api/v1/sensors/data        device ingest
	GET  /api/v1/realtime/data       latest value per sensor (cached)
	GET  /api/v1/realtime/chart      history points, ?hours=24&sensor_type=
	GET  /api/v1/realtime/alerts     alerts for the latest values
	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	GET  /metrics

With AUTH_MODE=jwt the realtime read endpoints require a bearer token. Tokens
for dashboards can be minted from the same binary:

	farmweb -issue-token farmwatch -role viewer

# Storage

	DB_DRIVER=sqlite DATABASE_URL=file:farmmonitor.db
	DB_DRIVER=postgres DATABASE_URL=postgres://farm:secret@db:5432/farm
	CACHE_BACKEND=redis REDIS_ADDR=redis:6379
*/
package main
