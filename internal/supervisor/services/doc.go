// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package services provides suture.Service wrappers for Farm Monitor components.

Each wrapper translates a component lifecycle into suture's
Serve(ctx) error contract and names itself through fmt.Stringer:

  - HTTPServerService: ListenAndServe plus graceful Shutdown
  - WebSocketHubService: websocket.Hub.RunWithContext
  - RetentionService: periodic store.ReadingStore.Prune

mqttingest.Subscriber implements suture.Service itself and is added to the
tree directly.

Returning ctx.Err() after cancellation is a clean stop; any other error makes
the supervisor restart the service.
*/
package services
