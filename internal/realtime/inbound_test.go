// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package realtime

import (
	"errors"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		ok     bool
		isPing bool
		keys   int
	}{
		{"ping", `{"type":"ping"}`, true, true, 0},
		{"ping with extra fields", `{"type":"ping","nonce":7}`, true, true, 0},
		{"sensor data", `{"type":"sensor_data","data":{"temperature":21.5,"humidity":40}}`, true, false, 2},
		{"empty sensor data", `{"type":"sensor_data","data":{}}`, true, false, 0},
		{"unknown type", `{"type":"pong"}`, false, false, 0},
		{"missing type", `{"data":{"temperature":1}}`, false, false, 0},
		{"data not object", `{"type":"sensor_data","data":"x"}`, false, false, 0},
		{"truncated", `{"type":"sensor_`, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := DecodeInbound([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			switch m := msg.(type) {
			case PingMessage:
				if !tt.isPing {
					t.Error("unexpected ping")
				}
			case SensorDataMessage:
				if tt.isPing {
					t.Error("expected ping")
				}
				if len(m.Data) != tt.keys {
					t.Errorf("keys = %d, want %d", len(m.Data), tt.keys)
				}
			default:
				t.Errorf("unexpected message %T", msg)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]float64
		wantErr bool
	}{
		{
			name: "envelope",
			raw:  `{"type":"sensor_data","data":{"temperature":21.5,"humidity":60}}`,
			want: map[string]float64{"temperature": 21.5, "humidity": 60},
		},
		{
			name: "bare reading",
			raw:  `{"device_id":"gh-1","temperature":30,"soil_moisture":41.5,"recorded_at":"2026-05-01T12:00:00Z"}`,
			want: map[string]float64{"temperature": 30, "soil_moisture": 41.5},
		},
		{
			name: "reading with null and string values",
			raw:  `{"device_id":"gh-1","temperature":null,"humidity":"wet","light":800}`,
			want: map[string]float64{"light": 800},
		},
		{
			name: "empty reading",
			raw:  `{}`,
			want: map[string]float64{},
		},
		{name: "ping envelope", raw: `{"type":"ping"}`, wantErr: true},
		{name: "envelope without data", raw: `{"type":"sensor_data"}`, wantErr: true},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "garbage", raw: `temperature=20`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrBadPayload) {
					t.Fatalf("err = %v, want ErrBadPayload", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
