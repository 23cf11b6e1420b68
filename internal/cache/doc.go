// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

/*
Package cache holds short-lived copies of read-endpoint results for farmweb.

Two layers are provided:

  - TTL, a thread-safe in-process map with per-entry expiry, used for chart
    history responses keyed by GenerateKey.
  - LatestCache, the latest-snapshot cache served by /api/v1/realtime/data.
    It has a memory backend built on TTL and a Redis backend so several
    farmweb replicas share one copy.

Both are invalidated by the ingest endpoint after every stored reading, so the
TTL only bounds staleness for readings written by other processes.

# Failure Semantics

A cache is never authoritative. Redis errors are logged and reported as a miss
so the caller falls through to the database.

# Metrics

Lookups are counted in cache_hits_total and cache_misses_total labelled by
backend.
*/
package cache
