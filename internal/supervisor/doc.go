// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package supervisor runs the long-lived parts of farmpush and farmweb under a
suture v4 supervisor tree.

farmpush:

	farmpush
	├── ingest-layer
	│   └── mqtt-ingest (if MQTT_ENABLED)
	├── messaging-layer
	│   └── websocket-hub
	└── api-layer
	    └── http-server

farmweb:

	farmweb
	├── ingest-layer
	│   └── store-retention (if database.history_max_hours > 0)
	├── messaging-layer
	└── api-layer
	    └── http-server

A service that returns an error is restarted with suture's backoff. Returning
ctx.Err() after cancellation is a clean stop. Events are logged through
sutureslog into the zerolog pipeline.

The service wrappers live in the services subpackage.
*/
package supervisor
