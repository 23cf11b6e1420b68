// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package threshold

import (
	"strings"
	"testing"
)

func TestEvaluate_Classification(t *testing.T) {
	e := NewDefault()

	tests := []struct {
		sensor string
		value  float64
		want   Status
	}{
		{"temperature", 9.99, StatusLow},
		{"temperature", 10, StatusNormal},
		{"temperature", 22, StatusNormal},
		{"temperature", 35, StatusNormal},
		{"temperature", 35.01, StatusHigh},
		{"humidity", 29, StatusLow},
		{"humidity", 30, StatusNormal},
		{"humidity", 80, StatusNormal},
		{"humidity", 81, StatusHigh},
		{"soil_moisture", 19.5, StatusLow},
		{"soil_moisture", 50, StatusNormal},
		{"soil_moisture", 80.5, StatusHigh},
		{"light", -1000, StatusNormal},
		{"ph", 99, StatusNormal},
	}

	for _, tt := range tests {
		status, alert := e.Evaluate(tt.sensor, tt.value)
		if status != tt.want {
			t.Errorf("Evaluate(%s, %v) status = %s, want %s", tt.sensor, tt.value, status, tt.want)
		}
		if (alert != nil) != (tt.want != StatusNormal) {
			t.Errorf("Evaluate(%s, %v) alert = %+v, want alert only for low/high", tt.sensor, tt.value, alert)
		}
	}
}

func TestEvaluate_LowAlert(t *testing.T) {
	_, alert := NewDefault().Evaluate("temperature", 5)
	if alert == nil {
		t.Fatal("expected alert")
	}
	if alert.Type != "warning" {
		t.Errorf("Type = %q, want warning", alert.Type)
	}
	if alert.Sensor != "temperature" {
		t.Errorf("Sensor = %q", alert.Sensor)
	}
	if alert.Threshold != 10 {
		t.Errorf("Threshold = %v, want 10", alert.Threshold)
	}
	if alert.Message != "Low temperature: 5 (below 10)" {
		t.Errorf("Message = %q", alert.Message)
	}
}

func TestEvaluate_HighAlert(t *testing.T) {
	_, alert := NewDefault().Evaluate("temperature", 40)
	if alert == nil {
		t.Fatal("expected alert")
	}
	if !strings.Contains(alert.Message, "High temperature") {
		t.Errorf("Message = %q, want it to contain 'High temperature'", alert.Message)
	}
	if alert.Value != 40 || alert.Threshold != 35 {
		t.Errorf("alert = %+v, want value 40 threshold 35", alert)
	}
}

func TestNew_CopiesRanges(t *testing.T) {
	ranges := map[string]Range{"temperature": {Min: 0, Max: 10}}
	e := New(ranges)
	ranges["temperature"] = Range{Min: 100, Max: 200}

	if got := e.Status("temperature", 5); got != StatusNormal {
		t.Errorf("mutating the input map changed the evaluator: status %s", got)
	}
}

func TestNew_NilRanges(t *testing.T) {
	e := New(nil)
	if s, a := e.Evaluate("temperature", -100); s != StatusNormal || a != nil {
		t.Errorf("nil ranges should classify everything normal, got %s %+v", s, a)
	}
}

func TestEvaluateAll_SortedAndNonNil(t *testing.T) {
	e := NewDefault()

	alerts := e.EvaluateAll(map[string]float64{
		"temperature":   50,
		"humidity":      10,
		"soil_moisture": 50,
	})
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Sensor != "humidity" || alerts[1].Sensor != "temperature" {
		t.Errorf("alerts not sorted by sensor: %+v", alerts)
	}

	none := e.EvaluateAll(map[string]float64{"temperature": 20})
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestUnitAndLabel(t *testing.T) {
	if Unit("temperature") != "°C" {
		t.Errorf("Unit(temperature) = %q", Unit("temperature"))
	}
	if Unit("wind") != "km/h" {
		t.Errorf("Unit(wind) = %q", Unit("wind"))
	}
	if Unit("unknown") != "" {
		t.Errorf("Unit(unknown) = %q", Unit("unknown"))
	}
	if Label("soil_moisture") != "Soil Moisture" {
		t.Errorf("Label(soil_moisture) = %q", Label("soil_moisture"))
	}
}
