// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Farmpush is the real-time broadcast server.

It accepts dashboard WebSocket connections on /ws, takes sensor payloads from
connected clients, from the farmweb bridge (POST /broadcast) and optionally
from MQTT, classifies every value against the configured thresholds and pushes
sensor_update messages to every open connection.

# Process Tree

	RootSupervisor ("farmpush")
	├── ingest-layer
	│   └── MQTT subscriber (mqtt.enabled)
	├── messaging-layer
	│   └── WebSocket hub
	└── api-layer
	    └── HTTP server

# Endpoints

	GET  /ws                         WebSocket upgrade
	POST /broadcast                  bridge receiver
	GET  /api/v1/realtime/data       in-memory snapshot for polling clients
	POST /api/v1/realtime/alert      manual alert push
	GET  /api/v1/health/live         liveness
	GET  /api/v1/health/ready        readiness, connection count and host stats
	GET  /metrics                    Prometheus

# Configuration

Settings come from defaults, an optional YAML file (-config or CONFIG_PATH)
and environment variables, in increasing priority. The most common ones:

	PUSH_PORT=8080
	PUSH_SENSOR_LOG=logs/sensor_data.log
	MQTT_ENABLED=true MQTT_BROKER=tcp://broker:1883
	LOG_LEVEL=debug LOG_FORMAT=console

The process stops gracefully on SIGINT or SIGTERM.
*/
package main
