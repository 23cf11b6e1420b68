// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

//go:build integration

// Package testinfra starts throwaway PostgreSQL, Redis and MQTT containers
// for integration tests.
//
// Every file is behind the integration build tag:
//
//	go test -tags integration ./internal/store/... ./internal/cache/... ./internal/mqttingest/...
//
// Tests call SkipIfNoDocker first so they are skipped rather than failed on
// machines without a Docker daemon:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    s, err := store.Open(ctx, config.DatabaseConfig{Driver: "postgres", DSN: pg.DSN})
//	    // ...
//	}
package testinfra
