// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package models

import (
	"sort"
	"time"
)

// Sensor types reported by field devices.
const (
	SensorTemperature  = "temperature"
	SensorHumidity     = "humidity"
	SensorSoilMoisture = "soil_moisture"
	SensorLight        = "light"
	SensorPH           = "ph"
	SensorWind         = "wind"
)

// BridgedSensors are the sensor types forwarded to the broadcast server.
var BridgedSensors = []string{SensorTemperature, SensorHumidity, SensorSoilMoisture}

// IsSensorType reports whether s names a known sensor type.
func IsSensorType(s string) bool {
	switch s {
	case SensorTemperature, SensorHumidity, SensorSoilMoisture, SensorLight, SensorPH, SensorWind:
		return true
	}
	return false
}

// SensorReading is one device submission. Absent sensors are nil. Validation
// tags are enforced by the web tier ingest endpoint.
type SensorReading struct {
	DeviceID     string     `json:"device_id" validate:"required,max=64,printascii"`
	Temperature  *float64   `json:"temperature" validate:"omitempty,finite,gte=-60,lte=80"`
	Humidity     *float64   `json:"humidity" validate:"omitempty,finite,gte=0,lte=100"`
	SoilMoisture *float64   `json:"soil_moisture" validate:"omitempty,finite,gte=0,lte=100"`
	Light        *float64   `json:"light,omitempty" validate:"omitempty,finite,gte=0,lte=200000"`
	PH           *float64   `json:"ph,omitempty" validate:"omitempty,finite,gte=0,lte=14"`
	Wind         *float64   `json:"wind,omitempty" validate:"omitempty,finite,gte=0,lte=300"`
	RecordedAt   *time.Time `json:"recorded_at,omitempty"`
}

// Values returns every present sensor value keyed by sensor type.
func (r *SensorReading) Values() map[string]float64 {
	out := make(map[string]float64, 6)
	set := func(k string, v *float64) {
		if v != nil {
			out[k] = *v
		}
	}
	set(SensorTemperature, r.Temperature)
	set(SensorHumidity, r.Humidity)
	set(SensorSoilMoisture, r.SoilMoisture)
	set(SensorLight, r.Light)
	set(SensorPH, r.PH)
	set(SensorWind, r.Wind)
	return out
}

// BridgedValues returns only the values that are forwarded to the broadcast
// server. Missing fields are omitted.
func (r *SensorReading) BridgedValues() map[string]float64 {
	all := r.Values()
	out := make(map[string]float64, len(BridgedSensors))
	for _, k := range BridgedSensors {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}

// LatestValue is the most recent value of one sensor type, as served to
// dashboards and the polling fallback.
type LatestValue struct {
	Value      float64   `json:"value"`
	Status     string    `json:"status"`
	Unit       string    `json:"unit,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

// Snapshot is the payload of the latest-data endpoints.
type Snapshot struct {
	Readings  map[string]LatestValue `json:"readings"`
	Timestamp int64                  `json:"timestamp"`
}

// Values flattens the snapshot into sensor type to value.
func (s Snapshot) Values() map[string]float64 {
	out := make(map[string]float64, len(s.Readings))
	for k, v := range s.Readings {
		out[k] = v.Value
	}
	return out
}

// HistoryPoint is one chart sample.
type HistoryPoint struct {
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ChartQuery holds the chart endpoint query parameters.
type ChartQuery struct {
	Hours      int    `json:"hours" validate:"min=1,max=720"`
	SensorType string `json:"sensor_type" validate:"omitempty,sensortype"`
}

// ChartSeries groups history points per sensor type in chronological order.
type ChartSeries map[string][]HistoryPoint

// GroupHistory splits points by sensor type, preserving order within a type.
func GroupHistory(points []HistoryPoint) ChartSeries {
	series := make(ChartSeries)
	for _, p := range points {
		series[p.SensorType] = append(series[p.SensorType], p)
	}
	for k := range series {
		pts := series[k]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].RecordedAt.Before(pts[j].RecordedAt) })
	}
	return series
}
