// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Farmwatch is a terminal dashboard for farmpush.

It discovers the broadcast server from an ordered candidate list, reconnects
with backoff when the socket drops and falls back to polling the latest-data
endpoint when reconnection is exhausted. The screen shows each sensor with its
status, a sparkline of the last readings, transient alert banners, the alert
history and a connection status line.

Usage:

	farmwatch -url ws://farm.local:8080/ws
	farmwatch -page http://farm.local:3000 -poll http://farm.local:3000/api/v1/realtime/data -token $TOKEN
	farmwatch -plain -notify

Flags override the client section of the shared configuration (WS_URL,
WS_POLL_URL, WS_AUTH_TOKEN, WS_SYNTHESIZE_ON_FAILURE and friends).
*/
package main
