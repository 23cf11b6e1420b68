// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package mqttingest

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/realtime"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

type recordingSink struct {
	mu    sync.Mutex
	calls []map[string]float64
	srcs  []realtime.Source
}

func (r *recordingSink) Ingest(data map[string]float64, source realtime.Source) realtime.IngestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, data)
	r.srcs = append(r.srcs, source)
	return realtime.IngestResult{Data: data}
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		accepted bool
	}{
		{"bare reading", `{"device_id":"gh-1","temperature":22.5,"humidity":61}`, true},
		{"envelope", `{"type":"sensor_data","data":{"soil_moisture":15}}`, true},
		{"no values", `{"device_id":"gh-1"}`, false},
		{"ping envelope", `{"type":"ping"}`, false},
		{"plain number", `22.5`, false},
		{"garbage", `not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := New(config.MQTTConfig{Broker: "tcp://127.0.0.1:1883"}, sink)

			got := s.HandleMessage("farm/gh-1/readings", []byte(tt.payload))
			if got != tt.accepted {
				t.Fatalf("accepted = %v, want %v", got, tt.accepted)
			}
			wantCalls := 0
			if tt.accepted {
				wantCalls = 1
			}
			if sink.count() != wantCalls {
				t.Errorf("sink calls = %d, want %d", sink.count(), wantCalls)
			}
			if tt.accepted && sink.srcs[0] != realtime.SourceMQTT {
				t.Errorf("source = %s", sink.srcs[0])
			}
		})
	}
}

func TestDeviceFromTopic(t *testing.T) {
	tests := map[string]string{
		"farm/gh-1/readings":          "gh-1",
		"site/a/farm/pump-3/readings": "pump-3",
		"readings":                    "",
		"farm/readings":               "",
	}
	for topic, want := range tests {
		if got := DeviceFromTopic(topic); got != want {
			t.Errorf("DeviceFromTopic(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(config.MQTTConfig{}, &recordingSink{})
	if s.cfg.ClientID == "" {
		t.Error("client id not generated")
	}
	if s.cfg.ConnectTimeout <= 0 {
		t.Error("connect timeout not defaulted")
	}
	if s.String() != "mqtt-ingest" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestServe_UnreachableBroker(t *testing.T) {
	s := New(config.MQTTConfig{
		Broker:         "tcp://127.0.0.1:1",
		Topics:         []string{"farm/+/readings"},
		ConnectTimeout: 500 * time.Millisecond,
	}, &recordingSink{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Serve(ctx); err == nil {
		t.Fatal("expected connect error")
	}
}
