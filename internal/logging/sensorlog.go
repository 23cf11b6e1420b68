// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SensorLog appends one JSON line per accepted sensor payload. It is separate
// from the process logger so the file holds readings only.
type SensorLog struct {
	mu     sync.Mutex
	logger zerolog.Logger
	closer io.Closer
}

// OpenSensorLog opens (or creates) the file at path in append mode. The parent
// directory is created when missing.
func OpenSensorLog(path string) (*SensorLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sensor log directory: %w", err)
	}
	//nolint:gosec // path comes from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open sensor log: %w", err)
	}
	return &SensorLog{logger: zerolog.New(f), closer: f}, nil
}

// NewSensorLog writes to w. Used by tests and when the caller owns the writer.
func NewSensorLog(w io.Writer) *SensorLog {
	return &SensorLog{logger: zerolog.New(w)}
}

// Record writes a single reading line. A nil receiver is a no-op so callers
// can leave the log disabled.
func (s *SensorLog) Record(ts time.Time, data map[string]float64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	values := zerolog.Dict()
	for k, v := range data {
		values = values.Float64(k, v)
	}
	s.logger.Log().Str("timestamp", ts.UTC().Format(time.RFC3339)).Dict("data", values).Send()
}

// Close closes the underlying file, if any.
func (s *SensorLog) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
