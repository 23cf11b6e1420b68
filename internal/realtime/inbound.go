// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package realtime

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"

	"github.com/tomtom215/farmmonitor/internal/models"
)

// Inbound is the closed set of messages a connection may send. Anything else
// is dropped by DecodeInbound.
type Inbound interface {
	inbound()
}

// PingMessage requests a pong for the sender.
type PingMessage struct{}

// SensorDataMessage carries readings keyed by sensor type.
type SensorDataMessage struct {
	Data map[string]float64
}

func (PingMessage) inbound()       {}
func (SensorDataMessage) inbound() {}

type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeInbound parses one frame. It returns false for malformed JSON, an
// unknown type, or a sensor_data message whose data is not an object. Within
// a valid object, entries whose value is not a JSON number are skipped.
func DecodeInbound(raw []byte) (Inbound, bool) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}

	switch env.Type {
	case models.MessageTypePing:
		return PingMessage{}, true
	case models.MessageTypeSensorData:
		data, ok := decodeSensorValues(env.Data)
		if !ok {
			return nil, false
		}
		return SensorDataMessage{Data: data}, true
	default:
		return nil, false
	}
}

var jsonNull = []byte("null")

func decodeSensorValues(raw json.RawMessage) (map[string]float64, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}

	out := make(map[string]float64, len(fields))
	for k, v := range fields {
		if k == "" || bytes.Equal(bytes.TrimSpace(v), jsonNull) {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			continue
		}
		out[k] = f
	}
	return out, true
}

// ErrBadPayload is returned by DecodePayload for bodies that are neither a
// sensor_data envelope nor a reading object.
var ErrBadPayload = errors.New("payload is not a sensor_data envelope or reading")

// readingMetaFields are reading keys that are not sensor values.
var readingMetaFields = map[string]bool{
	"device_id":   true,
	"recorded_at": true,
}

// DecodePayload accepts the two shapes producers send over HTTP and MQTT:
// a {"type":"sensor_data","data":{...}} envelope, or a bare reading object
// such as {"device_id":"gh-1","temperature":21.5}. It returns the numeric
// sensor values. Non-numeric values are skipped as in DecodeInbound.
func DecodePayload(raw []byte) (map[string]float64, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrBadPayload
	}

	if t, ok := fields["type"]; ok {
		var typ string
		if err := json.Unmarshal(t, &typ); err != nil || typ != models.MessageTypeSensorData {
			return nil, ErrBadPayload
		}
		data, ok := decodeSensorValues(fields["data"])
		if !ok {
			return nil, ErrBadPayload
		}
		return data, nil
	}

	for k := range readingMetaFields {
		delete(fields, k)
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, ErrBadPayload
	}
	data, _ := decodeSensorValues(body)
	return data, nil
}
