// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

//go:build integration

package testinfra

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage is the PostgreSQL image used for store tests.
	DefaultPostgresImage = "postgres:16-alpine"
	// DefaultRedisImage is the Redis image used for cache tests.
	DefaultRedisImage = "redis:7-alpine"
	// DefaultMosquittoImage is the MQTT broker used for ingest tests.
	DefaultMosquittoImage = "eclipse-mosquitto:2"

	testDBUser     = "farm"
	testDBPassword = "farm"
	testDBName     = "farmmonitor"
)

// PostgresContainer is a running PostgreSQL server.
type PostgresContainer struct {
	testcontainers.Container
	// DSN is a pgx connection string for the test database.
	DSN string
}

// NewPostgresContainer starts PostgreSQL and waits until it accepts connections.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	c, addr, err := startService(ctx, serviceSpec{
		name:  "postgres",
		image: DefaultPostgresImage,
		port:  "5432",
		env: map[string]string{
			"POSTGRES_USER":     testDBUser,
			"POSTGRES_PASSWORD": testDBPassword,
			"POSTGRES_DB":       testDBName,
		},
		// The entrypoint restarts the server once after init, so wait for the second line.
		wait: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(defaultStartTimeout),
	})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{
		Container: c,
		DSN:       fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", testDBUser, testDBPassword, addr, testDBName),
	}, nil
}

// RedisContainer is a running Redis server.
type RedisContainer struct {
	testcontainers.Container
	Addr string
}

// NewRedisContainer starts Redis.
func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	c, addr, err := startService(ctx, serviceSpec{
		name:  "redis",
		image: DefaultRedisImage,
		port:  "6379",
		wait:  wait.ForLog("Ready to accept connections").WithStartupTimeout(defaultStartTimeout),
	})
	if err != nil {
		return nil, err
	}
	return &RedisContainer{Container: c, Addr: addr}, nil
}

// MosquittoContainer is a running MQTT broker that accepts anonymous clients.
type MosquittoContainer struct {
	testcontainers.Container
	// BrokerURL is a tcp:// URL usable by paho.
	BrokerURL string
}

// NewMosquittoContainer starts an Eclipse Mosquitto broker.
func NewMosquittoContainer(ctx context.Context) (*MosquittoContainer, error) {
	c, addr, err := startService(ctx, serviceSpec{
		name:  "mosquitto",
		image: DefaultMosquittoImage,
		port:  "1883",
		cmd:   []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		wait:  wait.ForListeningPort("1883/tcp").WithStartupTimeout(defaultStartTimeout),
	})
	if err != nil {
		return nil, err
	}
	return &MosquittoContainer{Container: c, BrokerURL: "tcp://" + addr}, nil
}
