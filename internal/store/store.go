// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package store persists sensor readings for the web tier.
//
// A reading is stored as one row per present sensor value:
// (device_id, sensor_type, value, recorded_at). Two backends implement
// ReadingStore: an embedded SQLite database (default, also used by tests) and
// PostgreSQL through a pgx connection pool.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/models"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned by Latest when no reading has been stored yet.
var ErrNotFound = errors.New("store: no readings")

// Sample is the most recent stored value of one sensor type.
type Sample struct {
	DeviceID   string
	SensorType string
	Value      float64
	RecordedAt time.Time
}

// ReadingStore is the persistence contract used by the ingest and read
// endpoints.
type ReadingStore interface {
	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error
	// Insert stores every present value of reading in one transaction and
	// returns the number of rows written.
	Insert(ctx context.Context, reading *models.SensorReading) (int, error)
	// Latest returns the newest sample per sensor type.
	Latest(ctx context.Context) (map[string]Sample, error)
	// History returns samples recorded at or after since in chronological
	// order. An empty sensorType selects every type.
	History(ctx context.Context, since time.Time, sensorType string) ([]models.HistoryPoint, error)
	// Prune deletes samples recorded before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and runs migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (ReadingStore, error) {
	var (
		s   ReadingStore
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		s, err = OpenSQLite(cfg.DSN)
	case DriverPostgres:
		s, err = OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// rowsFor expands a reading into (sensor_type, value) pairs in a stable order.
func rowsFor(reading *models.SensorReading) ([]string, map[string]float64) {
	values := reading.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, values
}

// recordedAt returns the reading's timestamp or now, truncated to
// microseconds so both backends round-trip the same value.
func recordedAt(reading *models.SensorReading, now time.Time) time.Time {
	ts := now
	if reading.RecordedAt != nil && !reading.RecordedAt.IsZero() {
		ts = *reading.RecordedAt
	}
	return ts.UTC().Truncate(time.Microsecond)
}
