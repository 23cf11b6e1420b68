// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package realtime implements the broadcast server: it owns the in-memory
// latest snapshot, evaluates thresholds on every accepted payload and fans
// updates out through the connection registry.
package realtime

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/threshold"
	"github.com/tomtom215/farmmonitor/internal/websocket"
)

// Source labels where a payload came from, for metrics and logs.
type Source string

const (
	SourceWebSocket Source = "websocket"
	SourceBridge    Source = "bridge"
	SourceMQTT      Source = "mqtt"
)

// Registry is the subset of the connection registry the server needs.
type Registry interface {
	Attach(c *websocket.Client) bool
	Detach(c *websocket.Client) bool
	Broadcast(payload []byte) int
	Count() int
}

// Options configures a Server. Zero values pick defaults.
type Options struct {
	Evaluator *threshold.Evaluator
	SensorLog *logging.SensorLog
	Now       func() time.Time
}

// IngestResult reports what one accepted payload produced.
type IngestResult struct {
	Data       map[string]float64 `json:"data"`
	Alerts     []threshold.Alert  `json:"alerts"`
	Recipients int                `json:"clients"`
}

// Server is the broadcast server. It implements websocket.Handler.
type Server struct {
	registry  Registry
	evaluator *threshold.Evaluator
	sensorLog *logging.SensorLog
	now       func() time.Time
	log       zerolog.Logger

	// mu guards snapshot and orders snapshot reads against broadcasts, so a
	// new connection never sees an update older than its initial_data.
	mu       sync.Mutex
	snapshot map[string]float64
}

var _ websocket.Handler = (*Server)(nil)

// NewServer creates a Server over registry.
func NewServer(registry Registry, opts Options) *Server {
	if opts.Evaluator == nil {
		opts.Evaluator = threshold.NewDefault()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		registry:  registry,
		evaluator: opts.Evaluator,
		sensorLog: opts.SensorLog,
		now:       opts.Now,
		log:       logging.WithComponent("broadcast-server"),
		snapshot:  make(map[string]float64),
	}
}

// OnOpen registers c and, when anything is known, sends it the full snapshot.
func (s *Server) OnOpen(c *websocket.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Attach(c) {
		return
	}
	if len(s.snapshot) == 0 {
		return
	}

	msg := models.InitialDataMessage{
		Type:      models.MessageTypeInitialData,
		Data:      copyValues(s.snapshot),
		Timestamp: s.now().Unix(),
	}
	s.sendTo(c, msg)
}

// OnMessage handles one inbound frame from c. Malformed frames and unknown
// types are dropped without a reply.
func (s *Server) OnMessage(c *websocket.Client, raw []byte) {
	msg, ok := DecodeInbound(raw)
	if !ok {
		metrics.WSMessagesDropped.WithLabelValues("malformed").Inc()
		s.log.Debug().Str("conn_id", c.ConnID()).Int("bytes", len(raw)).Msg("dropping unrecognized message")
		return
	}

	switch m := msg.(type) {
	case PingMessage:
		s.sendTo(c, models.PongMessage{
			Type:      models.MessageTypePong,
			Timestamp: s.now().Unix(),
		})
	case SensorDataMessage:
		s.Ingest(m.Data, SourceWebSocket)
	default:
		metrics.WSMessagesDropped.WithLabelValues("unknown_type").Inc()
	}
}

// OnClose detaches c.
func (s *Server) OnClose(c *websocket.Client) {
	s.registry.Detach(c)
}

// OnError logs err and drops c. Other connections are unaffected.
func (s *Server) OnError(c *websocket.Client, err error) {
	metrics.WSErrors.WithLabelValues("connection").Inc()
	s.log.Warn().Err(err).
		Uint64("client_id", c.ID()).
		Str("conn_id", c.ConnID()).
		Str("remote_addr", c.RemoteAddr()).
		Msg("websocket connection error, closing")
	s.registry.Detach(c)
}

// Ingest merges data into the snapshot, evaluates thresholds over the keys in
// data only, and broadcasts a sensor_update carrying just those keys. An empty
// payload changes nothing and broadcasts nothing.
func (s *Server) Ingest(data map[string]float64, source Source) IngestResult {
	if len(data) == 0 {
		// Nothing to merge: no sensor_update frame, not even an empty one.
		return IngestResult{Data: map[string]float64{}, Alerts: []threshold.Alert{}}
	}

	update := copyValues(data)
	alerts := s.evaluator.EvaluateAll(update)
	ts := s.now()

	msg := models.SensorUpdateMessage{
		Type:      models.MessageTypeSensorUpdate,
		Data:      update,
		Alerts:    alerts,
		Timestamp: ts.Unix(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode sensor_update")
		return IngestResult{Data: update, Alerts: alerts}
	}

	s.mu.Lock()
	for k, v := range update {
		s.snapshot[k] = v
	}
	recipients := s.registry.Broadcast(payload)
	s.mu.Unlock()

	s.sensorLog.Record(ts, update)
	for k := range update {
		metrics.SensorReadings.WithLabelValues(k, string(source)).Inc()
	}
	for _, a := range alerts {
		metrics.SensorAlerts.WithLabelValues(a.Sensor, string(s.evaluator.Status(a.Sensor, a.Value))).Inc()
	}
	metrics.RecordBroadcast(models.MessageTypeSensorUpdate, recipients)

	s.log.Info().
		Str("source", string(source)).
		Int("sensors", len(update)).
		Int("alerts", len(alerts)).
		Int("clients", recipients).
		Msg("sensor update broadcast")

	return IngestResult{Data: update, Alerts: alerts, Recipients: recipients}
}

// BroadcastAlert pushes a standalone alert to every connection and returns the
// number reached.
func (s *Server) BroadcastAlert(alert threshold.Alert) int {
	if alert.Type == "" {
		alert.Type = threshold.AlertTypeWarning
	}
	payload, err := json.Marshal(models.AlertMessage{
		Type:      models.MessageTypeAlert,
		Alert:     alert,
		Timestamp: s.now().Unix(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode alert")
		return 0
	}

	s.mu.Lock()
	n := s.registry.Broadcast(payload)
	s.mu.Unlock()

	metrics.RecordBroadcast(models.MessageTypeAlert, n)
	s.log.Info().Str("sensor", alert.Sensor).Int("clients", n).Msg("alert broadcast")
	return n
}

// Snapshot returns a copy of the latest value per sensor type.
func (s *Server) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyValues(s.snapshot)
}

// SnapshotView returns the snapshot annotated with status and unit.
func (s *Server) SnapshotView() models.Snapshot {
	values := s.Snapshot()
	readings := make(map[string]models.LatestValue, len(values))
	for k, v := range values {
		readings[k] = models.LatestValue{
			Value:  v,
			Status: string(s.evaluator.Status(k, v)),
			Unit:   threshold.Unit(k),
		}
	}
	return models.Snapshot{Readings: readings, Timestamp: s.now().Unix()}
}

// ConnectionCount reports the number of registered connections.
func (s *Server) ConnectionCount() int {
	return s.registry.Count()
}

func (s *Server) sendTo(c *websocket.Client, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode direct message")
		return
	}
	if c.Send(payload) {
		metrics.WSMessagesSent.Inc()
		return
	}
	metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
	s.registry.Detach(c)
}

func copyValues(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
