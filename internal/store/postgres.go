// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id          BIGSERIAL PRIMARY KEY,
		device_id   TEXT             NOT NULL,
		sensor_type TEXT             NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ      NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_readings_type_time ON sensor_readings (sensor_type, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_readings_time ON sensor_readings (recorded_at)`,
}

// PostgresStore is the pgx-backed ReadingStore.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres creates a connection pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	logging.Info().Str("host", poolCfg.ConnConfig.Host).Int32("max_conns", poolCfg.MaxConns).Msg("PostgreSQL store connected")
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// Migrate implements ReadingStore.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, q := range postgresSchema {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

// Insert implements ReadingStore.
func (s *PostgresStore) Insert(ctx context.Context, reading *models.SensorReading) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverPostgres, "insert", time.Since(start), err) }()

	keys, values := rowsFor(reading)
	if len(keys) == 0 {
		return 0, nil
	}
	ts := recordedAt(reading, s.now())

	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(`INSERT INTO sensor_readings (device_id, sensor_type, value, recorded_at) VALUES ($1, $2, $3, $4)`,
			reading.DeviceID, k, values[k], ts)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	return len(keys), nil
}

// Latest implements ReadingStore.
func (s *PostgresStore) Latest(ctx context.Context) (out map[string]Sample, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverPostgres, "latest", time.Since(start), err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (sensor_type) sensor_type, device_id, value, recorded_at
		FROM sensor_readings
		ORDER BY sensor_type, recorded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	out = make(map[string]Sample)
	for rows.Next() {
		var smp Sample
		if err = rows.Scan(&smp.SensorType, &smp.DeviceID, &smp.Value, &smp.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan latest: %w", err)
		}
		smp.RecordedAt = smp.RecordedAt.UTC()
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
func (s *PostgresStore) History(ctx context.Context, since time.Time, sensorType string) (points []models.HistoryPoint, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverPostgres, "history", time.Since(start), err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT sensor_type, value, recorded_at FROM sensor_readings
		WHERE recorded_at >= $1 AND ($2 = '' OR sensor_type = $2)
		ORDER BY recorded_at ASC, id ASC`, since.UTC(), sensorType)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	points = make([]models.HistoryPoint, 0)
	for rows.Next() {
		var p models.HistoryPoint
		if err = rows.Scan(&p.SensorType, &p.Value, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		p.RecordedAt = p.RecordedAt.UTC()
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return points, nil
}

// Prune implements ReadingStore.
func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery(DriverPostgres, "prune", time.Since(start), err) }()

	tag, err := s.pool.Exec(ctx, `DELETE FROM sensor_readings WHERE recorded_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping implements ReadingStore.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements ReadingStore.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
