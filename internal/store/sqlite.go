// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
)

// SQLite timestamps are stored as unix microseconds so range scans compare
// integers instead of formatted strings.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id   TEXT    NOT NULL,
		sensor_type TEXT    NOT NULL,
		value       REAL    NOT NULL,
		recorded_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_readings_type_time ON sensor_readings (sensor_type, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_readings_time ON sensor_readings (recorded_at)`,
}

// SQLiteStore is the embedded ReadingStore backend.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens dsn with the pure-Go SQLite driver. In-memory databases
// are pinned to a single connection so every query sees the same data.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is empty")
	}
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	logging.Debug().Str("dsn", dsn).Msg("SQLite store opened")
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// ensureDir creates the parent directory of a file DSN.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// Migrate implements ReadingStore.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, q := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

// Insert implements ReadingStore.
func (s *SQLiteStore) Insert(ctx context.Context, reading *models.SensorReading) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverSQLite, "insert", time.Since(start), err) }()

	keys, values := rowsFor(reading)
	if len(keys) == 0 {
		return 0, nil
	}
	ts := recordedAt(reading, s.now()).UnixMicro()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sensor_readings (device_id, sensor_type, value, recorded_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err = stmt.ExecContext(ctx, reading.DeviceID, k, values[k], ts); err != nil {
			return 0, fmt.Errorf("insert %s: %w", k, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(keys), nil
}

// Latest implements ReadingStore.
func (s *SQLiteStore) Latest(ctx context.Context) (out map[string]Sample, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverSQLite, "latest", time.Since(start), err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_type, device_id, value, recorded_at FROM (
			SELECT sensor_type, device_id, value, recorded_at,
			       ROW_NUMBER() OVER (PARTITION BY sensor_type ORDER BY recorded_at DESC, id DESC) AS rn
			FROM sensor_readings
		) WHERE rn = 1`)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	out = make(map[string]Sample)
	for rows.Next() {
		var smp Sample
		var ts int64
		if err = rows.Scan(&smp.SensorType, &smp.DeviceID, &smp.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan latest: %w", err)
		}
		smp.RecordedAt = time.UnixMicro(ts).UTC()
		out[smp.SensorType] = smp
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// History implements ReadingStore.
func (s *SQLiteStore) History(ctx context.Context, since time.Time, sensorType string) (points []models.HistoryPoint, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverSQLite, "history", time.Since(start), err) }()

	query := `SELECT sensor_type, value, recorded_at FROM sensor_readings WHERE recorded_at >= ?`
	args := []any{since.UTC().UnixMicro()}
	if sensorType != "" {
		query += ` AND sensor_type = ?`
		args = append(args, sensorType)
	}
	query += ` ORDER BY recorded_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	points = make([]models.HistoryPoint, 0)
	for rows.Next() {
		var p models.HistoryPoint
		var ts int64
		if err = rows.Scan(&p.SensorType, &p.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		p.RecordedAt = time.UnixMicro(ts).UTC()
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return points, nil
}

// Prune implements ReadingStore.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverSQLite, "prune", time.Since(start), err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sensor_readings WHERE recorded_at < ?`, cutoff.UTC().UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return res.RowsAffected()
}

// Ping implements ReadingStore.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements ReadingStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
