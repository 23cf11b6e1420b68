// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/models"
)

// Redis is a LatestCache shared by every farmweb replica.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg config.CacheConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisWithClient(client, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, log: logging.WithComponent("cache")}
}

// Get implements LatestCache.
func (r *Redis) Get(ctx context.Context) (models.Snapshot, bool) {
	var snap models.Snapshot
	raw, err := r.client.Get(ctx, latestKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Msg("redis get failed, treating as miss")
		}
		record(BackendRedis, false)
		return snap, false
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		r.log.Warn().Err(err).Msg("corrupt cached snapshot, dropping")
		r.Invalidate(ctx)
		record(BackendRedis, false)
		return models.Snapshot{}, false
	}
	record(BackendRedis, true)
	return snap, true
}

// Set implements LatestCache.
func (r *Redis) Set(ctx context.Context, snap models.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		r.log.Warn().Err(err).Msg("encode snapshot for cache")
		return
	}
	if err := r.client.Set(ctx, latestKey, raw, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Msg("redis set failed")
	}
}

// Invalidate implements LatestCache.
func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, latestKey).Err(); err != nil {
		r.log.Warn().Err(err).Msg("redis invalidate failed")
	}
}

// Close implements LatestCache.
func (r *Redis) Close() error {
	return r.client.Close()
}
