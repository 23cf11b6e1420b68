// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/sysinfo"
)

const healthCheckTimeout = 2 * time.Second

// HostCollector samples host resource usage for the readiness report.
type HostCollector interface {
	Collect(ctx context.Context) sysinfo.HostStats
}

// CheckFunc reports whether one dependency is usable.
type CheckFunc func(ctx context.Context) error

// HealthReporter answers liveness and readiness probes for either binary.
type HealthReporter struct {
	version     string
	startTime   time.Time
	host        HostCollector
	connections func() int

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthReporter creates a reporter. host may be nil.
func NewHealthReporter(version string, host HostCollector) *HealthReporter {
	return &HealthReporter{
		version:   version,
		startTime: time.Now(),
		host:      host,
		checks:    make(map[string]CheckFunc),
	}
}

// AddCheck registers a readiness dependency. Any failing check makes the
// service not ready.
func (h *HealthReporter) AddCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// Live handles liveness probes. It never touches dependencies.
func (h *HealthReporter) Live(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// Ready handles readiness probes: 200 when every check passes, 503 otherwise.
func (h *HealthReporter) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.Status(r.Context())

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
		logging.Ctx(r.Context()).Warn().Interface("checks", status.Checks).Msg("Readiness check failed")
	}
	NewResponseWriter(w, r).Respond(code, code == http.StatusOK, status)
}

// Status runs every registered check and assembles the report.
func (h *HealthReporter) Status(ctx context.Context) models.HealthStatus {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make(map[string]CheckFunc, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()

	status := models.HealthStatus{
		Status:  "ready",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}
	if len(names) > 0 {
		status.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := checks[name](checkCtx)
		cancel()
		if err != nil {
			status.Status = "not_ready"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}
	if h.connections != nil {
		status.Connections = h.connections()
	}
	if h.host != nil {
		status.Host = h.host.Collect(ctx)
	}
	return status
}
