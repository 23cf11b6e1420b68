// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package websocket provides the connection registry for the farmpush broadcast
server.

A Hub tracks the set of live Clients. Each Client wraps one gorilla/websocket
connection with a buffered outbound queue and two goroutines:

  - readPump reads frames, applies the per-connection message budget and hands
    each frame to a Handler
  - writePump drains the outbound queue and sends keepalive pings

Broadcast serializes nothing itself: callers pass the encoded frame (or use
BroadcastMessage, which encodes once) and the Hub enqueues the same bytes on
every registered Client. Enqueueing never blocks. A Client whose queue is full
or already closed is detached on the spot and its connection is closed by its
writePump, so one stalled browser cannot hold up the rest.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	client := websocket.NewClientContext(r.Context(), conn, websocket.DefaultClientOptions())
	hub.Attach(client)
	client.Start(handler)

	hub.BroadcastMessage(update)

Thread Safety:

Attach, Detach, Broadcast and Count take the Hub lock, so a broadcast never
iterates the registry while it is being modified. Client.Send may be called
from any goroutine.
*/
package websocket
