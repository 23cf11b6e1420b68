// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package models defines the wire and storage shapes shared by farmpush, farmweb
and farmwatch.

Readings:

  - SensorReading: one device submission to the web tier, validated with
    go-playground/validator tags
  - Snapshot and LatestValue: latest value per sensor type with status and unit
  - HistoryPoint, ChartQuery and ChartSeries: chart history

WebSocket messages (realtime.go): the inbound sensor_data and ping envelopes
and the outbound sensor_update, initial_data, pong and alert messages.
ServerMessage is the union clients decode every frame into.

API envelopes (api_responses.go): APIResponse with APIError and APIMeta, and
the typed payloads of the ingest, alert and health endpoints.

All JSON is encoded with goccy/go-json.
*/
package models
