// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/realtime"
	"github.com/tomtom215/farmmonitor/internal/threshold"
	"github.com/tomtom215/farmmonitor/internal/validation"
	"github.com/tomtom215/farmmonitor/internal/websocket"
)

// maxBodyBytes caps JSON request bodies on every POST endpoint.
const maxBodyBytes = 64 * 1024

// Broadcaster is the broadcast server as seen by the push tier handlers.
type Broadcaster interface {
	websocket.Handler
	OnOpen(c *websocket.Client)
	Ingest(data map[string]float64, source realtime.Source) realtime.IngestResult
	BroadcastAlert(alert threshold.Alert) int
	SnapshotView() models.Snapshot
	ConnectionCount() int
}

// PushHandlerOptions configures a PushHandler.
type PushHandlerOptions struct {
	ClientOptions websocket.ClientOptions
	// AllowOrigin decides cross-origin WebSocket upgrades. Nil allows only
	// same-host origins.
	AllowOrigin func(origin string) bool
	Health      *HealthReporter
}

// PushHandler serves the farmpush endpoints.
type PushHandler struct {
	server      Broadcaster
	clientOpts  websocket.ClientOptions
	allowOrigin func(origin string) bool
	health      *HealthReporter
	upgrader    gorillaws.Upgrader
}

// NewPushHandler creates the handler set for the broadcast server.
func NewPushHandler(server Broadcaster, opts PushHandlerOptions) *PushHandler {
	h := &PushHandler{
		server:      server,
		clientOpts:  opts.ClientOptions,
		allowOrigin: opts.AllowOrigin,
		health:      opts.Health,
	}
	if h.health == nil {
		h.health = NewHealthReporter("", nil)
	}
	h.health.connections = server.ConnectionCount
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
	return h
}

// checkWebSocketOrigin accepts requests without an Origin header (non-browser
// clients such as farmwatch), same-host origins, and allowlisted origins.
func (h *PushHandler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	if h.allowOrigin != nil && h.allowOrigin(origin) {
		return true
	}
	metrics.WSErrors.WithLabelValues("origin_rejected").Inc()
	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the request and hands the connection to the broadcast
// server. The server sends initial_data before the pumps start.
func (h *PushHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClientContext(r.Context(), conn, h.clientOpts)
	h.server.OnOpen(client)
	client.Start(h.server)
}

// Broadcast is the HTTP ingest bridge receiver. It accepts a sensor_data
// envelope or a bare reading and reports how many clients were reached.
func (h *PushHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		rw.BadRequest("Request body too large or unreadable")
		return
	}
	data, err := realtime.DecodePayload(raw)
	if err != nil {
		rw.BadRequest("Expected a sensor_data envelope or a reading object")
		return
	}

	res := h.server.Ingest(data, realtime.SourceBridge)
	logging.Ctx(r.Context()).Debug().Int("sensors", len(res.Data)).Int("clients", res.Recipients).Msg("Bridge payload broadcast")
	rw.Success(res)
}

// LatestData serves the in-memory snapshot for the polling fallback.
func (h *PushHandler) LatestData(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.server.SnapshotView())
}

// PushAlert validates a manual alert and broadcasts it.
func (h *PushHandler) PushAlert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.AlertRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	n := h.server.BroadcastAlert(req.Alert())
	rw.Success(map[string]int{"clients": n})
}

// HealthLive and HealthReady delegate to the shared reporter.
func (h *PushHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.Live(w, r)
}

func (h *PushHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.Ready(w, r)
}

var errEmptyBody = errors.New("empty request body")

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errEmptyBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}
