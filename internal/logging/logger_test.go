// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	Info().Str("sensor", "temperature").Msg("reading accepted")

	output := buf.String()
	if !strings.Contains(output, "reading accepted") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"sensor":"temperature"`) {
		t.Errorf("expected field in output, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	l := WithComponent("hub")
	l.Info().Msg("started")

	if !strings.Contains(buf.String(), `"component":"hub"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithConnectionID(ctx, "conn-9")
	Ctx(ctx).Info().Msg("handled")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id: %s", out)
	}
	if !strings.Contains(out, `"conn_id":"conn-9"`) {
		t.Errorf("missing conn_id: %s", out)
	}
}

func TestCtx_NoValues(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	Ctx(context.Background()).Info().Msg("plain")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id: %s", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(Config{Level: "info", Output: &bytes.Buffer{}})

	logger := NewSlogLogger().WithGroup("svc").With("name", "hub")
	logger.Warn("service restarted", "attempt", 2, "err", errors.New("boom"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["svc.name"] != "hub" {
		t.Errorf("svc.name = %v, want hub", entry["svc.name"])
	}
	if entry["svc.attempt"] != float64(2) {
		t.Errorf("svc.attempt = %v, want 2", entry["svc.attempt"])
	}
	if entry["svc.err"] != "boom" {
		t.Errorf("svc.err = %v, want boom", entry["svc.err"])
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := &SlogHandler{logger: NewTestLogger(&bytes.Buffer{}).Level(zerolog.WarnLevel)}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled for a warn-level logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled for a warn-level logger")
	}
}

func TestSensorLog_Record(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSensorLog(&buf)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sl.Record(ts, map[string]float64{"temperature": 22.5})

	var entry struct {
		Timestamp string             `json:"timestamp"`
		Data      map[string]float64 `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if entry.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("timestamp = %s", entry.Timestamp)
	}
	if entry.Data["temperature"] != 22.5 {
		t.Errorf("temperature = %v, want 22.5", entry.Data["temperature"])
	}
}

func TestSensorLog_NilIsNoop(t *testing.T) {
	var sl *SensorLog
	sl.Record(time.Now(), map[string]float64{"humidity": 40})
	if err := sl.Close(); err != nil {
		t.Errorf("Close on nil log returned %v", err)
	}
}

func TestOpenSensorLog_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sensor_data.log")

	sl, err := OpenSensorLog(path)
	if err != nil {
		t.Fatalf("OpenSensorLog: %v", err)
	}
	sl.Record(time.Now(), map[string]float64{"soil_moisture": 41})
	sl.Record(time.Now(), map[string]float64{"soil_moisture": 42})
	if err := sl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}
