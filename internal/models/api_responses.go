// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package models

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/farmmonitor/internal/threshold"
)

// APIResponse wraps every JSON body served by farmweb and farmpush.
//
// Success:
//
//	{"success": true, "data": {...}, "meta": {"timestamp": "...", "request_id": "..."}}
//
// Failure:
//
//	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": "..."}, "meta": {...}}
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError carries a machine-readable code and a human message.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIMeta is attached to every response.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Cached     bool      `json:"cached,omitempty"`
}

// RawAPIResponse is the client-side view of APIResponse with Data left
// undecoded.
type RawAPIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error,omitempty"`
}

// IngestResponse is returned by POST /api/v1/sensors/data.
type IngestResponse struct {
	DeviceID   string             `json:"device_id"`
	Stored     int                `json:"stored"`
	Forwarded  bool               `json:"forwarded"`
	Data       map[string]float64 `json:"data"`
	Alerts     []threshold.Alert  `json:"alerts"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// AlertRequest is the body of the manual alert endpoint.
type AlertRequest struct {
	Type      string  `json:"type" validate:"omitempty,oneof=warning"`
	Sensor    string  `json:"sensor" validate:"required,sensortype"`
	Message   string  `json:"message" validate:"required,max=256"`
	Value     float64 `json:"value" validate:"finite"`
	Threshold float64 `json:"threshold" validate:"finite"`
}

// Alert converts the request to a threshold alert.
func (r AlertRequest) Alert() threshold.Alert {
	t := r.Type
	if t == "" {
		t = threshold.AlertTypeWarning
	}
	return threshold.Alert{
		Type:      t,
		Sensor:    r.Sensor,
		Message:   r.Message,
		Value:     r.Value,
		Threshold: r.Threshold,
	}
}

// AlertsResponse lists alerts computed from the latest values.
type AlertsResponse struct {
	Alerts    []threshold.Alert `json:"alerts"`
	Timestamp int64             `json:"timestamp"`
}

// HealthStatus is served by the health endpoints.
type HealthStatus struct {
	Status      string            `json:"status"`
	Version     string            `json:"version,omitempty"`
	Uptime      string            `json:"uptime"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks,omitempty"`
	Host        interface{}       `json:"host,omitempty"`
}
