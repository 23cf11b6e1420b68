// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/farmmonitor/internal/logging"
)

// Pruner deletes samples older than a cutoff. store.ReadingStore satisfies it.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService trims the reading store to a rolling window. A failed
// prune is logged and retried on the next tick; it never restarts the
// service.
type RetentionService struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRetentionService prunes samples older than retention every interval.
// A non-positive interval defaults to one hour.
func NewRetentionService(pruner Pruner, retention, interval time.Duration) *RetentionService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionService{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		log:       logging.WithComponent("store-retention"),
	}
}

// Serve implements suture.Service. It prunes once at start, then on every tick.
func (s *RetentionService) Serve(ctx context.Context) error {
	s.prune(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *RetentionService) prune(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Time("cutoff", cutoff).Msg("retention prune failed")
		}
		return
	}
	if n > 0 {
		s.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("pruned old samples")
	}
}

func (s *RetentionService) String() string {
	return "store-retention"
}
