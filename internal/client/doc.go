// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package client keeps a dashboard fed from farmpush.

A Manager owns at most one WebSocket connection at a time. It walks an ordered
list of candidate URLs until one opens, reconnects to the last good URL with a
linear backoff after a drop, and falls back to polling the latest-data endpoint
once reconnection is exhausted:

	connecting -> connected -> disconnected -> reconnecting -> connecting
	connecting -> error -> (next candidate) ... -> failed -> polling

Polling is terminal. All timers, dials and fetches are driven from a single
event loop goroutine, so handler callbacks never run concurrently and none
starts after Close. Handlers may call Close and Ping themselves; neither waits
on the loop in that case. A failed ping write is treated like a dropped socket.

Dashboard is the Handler used by farmwatch. It classifies values with the
threshold evaluator, keeps bounded chart buffers and an alert history, and
expires transient notifications after a fixed duration.
*/
package client
