// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package threshold

import "strings"

var units = map[string]string{
	"temperature":   "°C",
	"humidity":      "%",
	"soil_moisture": "%",
	"light":         "lux",
	"wind":          "km/h",
	"ph":            "pH",
}

// Unit returns the display unit for sensorType, or "" when unknown.
func Unit(sensorType string) string {
	return units[sensorType]
}

// Label turns "soil_moisture" into "Soil Moisture".
func Label(sensorType string) string {
	words := strings.Split(sensorType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
