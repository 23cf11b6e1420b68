// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package models

import "github.com/tomtom215/farmmonitor/internal/threshold"

// WebSocket message types exchanged between farmpush and its clients.
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeSensorData   = "sensor_data"
	MessageTypeSensorUpdate = "sensor_update"
	MessageTypeInitialData  = "initial_data"
	MessageTypeAlert        = "alert"
)

// SensorDataEnvelope is the inbound {"type":"sensor_data","data":{...}} message.
// The bridge posts the same shape over HTTP.
type SensorDataEnvelope struct {
	Type string             `json:"type"`
	Data map[string]float64 `json:"data"`
}

// PingEnvelope is the inbound keepalive request.
type PingEnvelope struct {
	Type string `json:"type"`
}

// InitialDataMessage is sent once to a newly attached connection when the
// snapshot is not empty.
type InitialDataMessage struct {
	Type      string             `json:"type"`
	Data      map[string]float64 `json:"data"`
	Timestamp int64              `json:"timestamp"`
}

// SensorUpdateMessage is broadcast after every accepted sensor_data payload.
// Data holds only the keys present in that payload.
type SensorUpdateMessage struct {
	Type      string             `json:"type"`
	Data      map[string]float64 `json:"data"`
	Alerts    []threshold.Alert  `json:"alerts"`
	Timestamp int64              `json:"timestamp"`
}

// PongMessage answers a ping, to the sender only.
type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// AlertMessage is a manually pushed alert with no data update.
type AlertMessage struct {
	Type      string          `json:"type"`
	Alert     threshold.Alert `json:"alert"`
	Timestamp int64           `json:"timestamp"`
}

// ServerMessage is the union of every outbound field, used by clients to
// decode any frame in one pass and switch on Type.
type ServerMessage struct {
	Type      string             `json:"type"`
	Data      map[string]float64 `json:"data,omitempty"`
	Alerts    []threshold.Alert  `json:"alerts,omitempty"`
	Alert     *threshold.Alert   `json:"alert,omitempty"`
	Timestamp int64              `json:"timestamp"`
}
