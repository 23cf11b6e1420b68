// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// latestKey is the single key the latest snapshot is stored under.
const latestKey = "farmmonitor:latest"

// LatestCache caches the latest-values snapshot.
type LatestCache interface {
	// Get returns the cached snapshot. Backend errors are reported as a miss.
	Get(ctx context.Context) (models.Snapshot, bool)
	Set(ctx context.Context, snap models.Snapshot)
	// Invalidate drops the cached snapshot after new readings are stored.
	Invalidate(ctx context.Context)
	Close() error
}

// New creates the configured LatestCache backend.
func New(ctx context.Context, cfg config.CacheConfig) (LatestCache, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(cfg.TTL), nil
	case BackendRedis:
		return NewRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// Memory is the in-process LatestCache.
type Memory struct {
	ttl *TTL[models.Snapshot]
}

// NewMemory creates a memory LatestCache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: NewTTL[models.Snapshot](ttl)}
}

// Get implements LatestCache.
func (m *Memory) Get(_ context.Context) (models.Snapshot, bool) {
	snap, ok := m.ttl.Get(latestKey)
	record(BackendMemory, ok)
	return snap, ok
}

// Set implements LatestCache.
func (m *Memory) Set(_ context.Context, snap models.Snapshot) {
	m.ttl.Set(latestKey, snap)
}

// Invalidate implements LatestCache.
func (m *Memory) Invalidate(_ context.Context) {
	m.ttl.Delete(latestKey)
}

// Close implements LatestCache.
func (m *Memory) Close() error {
	m.ttl.Close()
	return nil
}

func record(backend string, hit bool) {
	if hit {
		metrics.CacheHits.WithLabelValues(backend).Inc()
		return
	}
	metrics.CacheMisses.WithLabelValues(backend).Inc()
}

var (
	_ LatestCache = (*Memory)(nil)
	_ LatestCache = (*Redis)(nil)
)
