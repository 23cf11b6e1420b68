// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package threshold classifies sensor readings against configured normal bands.
//
// The Evaluator is pure: no I/O, no clock, no shared state beyond its
// immutable range table, so it is safe for concurrent use and shared by the
// broadcast server, the web tier and the terminal client.
package threshold

import (
	"fmt"
	"sort"
	"strconv"
)

// Status is the classification of one reading.
type Status string

const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
)

// AlertTypeWarning is the only alert type produced by threshold violations.
const AlertTypeWarning = "warning"

// Range is the inclusive normal band for a sensor type. Values equal to Min or
// Max are normal.
type Range struct {
	Min float64
	Max float64
}

// Alert describes a reading outside its normal band. Threshold is the bound
// that was crossed.
type Alert struct {
	Type      string  `json:"type"`
	Sensor    string  `json:"sensor"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// DefaultRanges returns the stock bands for the three monitored sensor types.
func DefaultRanges() map[string]Range {
	return map[string]Range{
		"temperature":   {Min: 10, Max: 35},
		"humidity":      {Min: 30, Max: 80},
		"soil_moisture": {Min: 20, Max: 80},
	}
}

// Evaluator maps (sensor type, value) to a status and an optional alert.
type Evaluator struct {
	ranges map[string]Range
}

// New creates an Evaluator over a copy of ranges. A nil map yields an
// Evaluator that classifies everything as normal.
func New(ranges map[string]Range) *Evaluator {
	cp := make(map[string]Range, len(ranges))
	for k, v := range ranges {
		cp[k] = v
	}
	return &Evaluator{ranges: cp}
}

// NewDefault creates an Evaluator with DefaultRanges.
func NewDefault() *Evaluator {
	return New(DefaultRanges())
}

// Range returns the configured band for sensorType.
func (e *Evaluator) Range(sensorType string) (Range, bool) {
	r, ok := e.ranges[sensorType]
	return r, ok
}

// Evaluate classifies value. Unconfigured sensor types are always normal with
// no alert.
func (e *Evaluator) Evaluate(sensorType string, value float64) (Status, *Alert) {
	r, ok := e.ranges[sensorType]
	if !ok {
		return StatusNormal, nil
	}

	switch {
	case value < r.Min:
		return StatusLow, &Alert{
			Type:      AlertTypeWarning,
			Sensor:    sensorType,
			Message:   fmt.Sprintf("Low %s: %s (below %s)", sensorType, formatValue(value), formatValue(r.Min)),
			Value:     value,
			Threshold: r.Min,
		}
	case value > r.Max:
		return StatusHigh, &Alert{
			Type:      AlertTypeWarning,
			Sensor:    sensorType,
			Message:   fmt.Sprintf("High %s: %s (above %s)", sensorType, formatValue(value), formatValue(r.Max)),
			Value:     value,
			Threshold: r.Max,
		}
	default:
		return StatusNormal, nil
	}
}

// Status is Evaluate without the alert.
func (e *Evaluator) Status(sensorType string, value float64) Status {
	s, _ := e.Evaluate(sensorType, value)
	return s
}

// EvaluateAll evaluates every entry of data and returns the alerts in sensor
// name order. The result is never nil.
func (e *Evaluator) EvaluateAll(data map[string]float64) []Alert {
	alerts := make([]Alert, 0)
	for _, sensor := range SortedKeys(data) {
		if _, alert := e.Evaluate(sensor, data[sensor]); alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}

// SortedKeys returns the keys of data in ascending order.
func SortedKeys(data map[string]float64) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatValue prints the shortest representation, so 40 prints as "40" and
// 22.5 as "22.5".
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
