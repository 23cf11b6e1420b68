// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package sysinfo reports host resource usage for the readiness endpoint.
// farmpush typically runs on a small gateway board next to the field
// devices, so memory and disk pressure are the first things to check when
// broadcasts start lagging.
package sysinfo

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/tomtom215/farmmonitor/internal/logging"
)

const mib = 1024 * 1024

// HostStats is a point-in-time view of the host. Fields that could not be
// read are left at zero and named in Errors.
type HostStats struct {
	CPUPercent   float64  `json:"cpu_percent"`
	MemUsedMB    float64  `json:"mem_used_mb"`
	MemTotalMB   float64  `json:"mem_total_mb"`
	DiskUsedPct  float64  `json:"disk_used_percent"`
	ProcessRSSMB float64  `json:"process_rss_mb"`
	Goroutines   int      `json:"goroutines"`
	Errors       []string `json:"errors,omitempty"`
}

// Collector reads host statistics. DiskPath selects the filesystem to report.
type Collector struct {
	DiskPath string
}

// NewCollector returns a collector for the filesystem containing path.
func NewCollector(path string) *Collector {
	if path == "" {
		path = "/"
	}
	return &Collector{DiskPath: path}
}

// Collect gathers the statistics. It never blocks for a CPU sampling window:
// the CPU figure is the usage since the previous call.
func (c *Collector) Collect(ctx context.Context) HostStats {
	stats := HostStats{Goroutines: runtime.NumGoroutine()}
	fail := func(part string, err error) {
		logging.Debug().Err(err).Str("part", part).Msg("host stat unavailable")
		stats.Errors = append(stats.Errors, part)
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil || len(pct) == 0 {
		fail("cpu", err)
	} else {
		stats.CPUPercent = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		fail("memory", err)
	} else {
		// Available excludes reclaimable page cache.
		stats.MemUsedMB = float64(vm.Total-vm.Available) / mib
		stats.MemTotalMB = float64(vm.Total) / mib
	}

	if du, err := disk.UsageWithContext(ctx, c.DiskPath); err != nil {
		fail("disk", err)
	} else {
		stats.DiskUsedPct = du.UsedPercent
	}

	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err != nil { //nolint:gosec // pid fits int32
		fail("process", err)
	} else if mi, err := p.MemoryInfoWithContext(ctx); err != nil {
		fail("process", err)
	} else {
		stats.ProcessRSSMB = float64(mi.RSS) / mib
	}

	return stats
}
