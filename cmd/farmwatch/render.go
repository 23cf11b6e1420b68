// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package main

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/tomtom215/farmmonitor/internal/client"
)

const (
	clearScreen   = "\x1b[H\x1b[2J"
	historyRows   = 5
	timestampForm = "15:04:05"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

type renderer struct {
	out   io.Writer
	clear bool
	last  []byte
}

func newRenderer(out io.Writer, clear bool) *renderer {
	return &renderer{out: out, clear: clear}
}

// Render writes v unless it is identical to the previous frame.
func (r *renderer) Render(v client.View) {
	frame := formatView(v)
	if bytes.Equal(frame, r.last) {
		return
	}
	r.last = frame
	if r.clear {
		_, _ = io.WriteString(r.out, clearScreen)
	}
	_, _ = r.out.Write(frame)
}

func formatView(v client.View) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Farm Monitor  [%s]", strings.ToUpper(string(v.State)))
	if v.Source != "" {
		fmt.Fprintf(&buf, "  source: %s", v.Source)
	}
	if !v.LastUpdate.IsZero() {
		fmt.Fprintf(&buf, "  last update: %s", v.LastUpdate.Local().Format(timestampForm))
	}
	buf.WriteByte('\n')
	if v.Stale {
		fmt.Fprintf(&buf, "DATA STALE: %s\n", v.StaleReason)
	}
	buf.WriteByte('\n')

	if len(v.Values) == 0 {
		buf.WriteString("Waiting for sensor data...\n")
	} else {
		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SENSOR\tVALUE\tSTATUS\tTREND")
		for _, s := range v.Values {
			value := strconv.FormatFloat(s.Value, 'f', 1, 64)
			if s.Unit != "" {
				value += " " + s.Unit
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Label, value, strings.ToUpper(string(s.Status)), sparkline(v.Charts[s.Sensor]))
		}
		_ = tw.Flush()
	}

	if len(v.Notifications) > 0 {
		buf.WriteByte('\n')
		for _, n := range v.Notifications {
			fmt.Fprintf(&buf, "!! %s: %s\n", strings.ToUpper(n.Sensor), n.Message)
		}
	}

	if len(v.Alerts) > 0 {
		fmt.Fprintf(&buf, "\nRecent alerts (%d)\n", len(v.Alerts))
		for i, a := range v.Alerts {
			if i == historyRows {
				break
			}
			fmt.Fprintf(&buf, "  %s  %s\n", a.ReceivedAt.Local().Format(timestampForm), a.Message)
		}
	}
	return buf.Bytes()
}

// sparkline scales points between their own min and max.
func sparkline(points []client.ChartPoint) string {
	if len(points) == 0 {
		return ""
	}
	lo, hi := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}

	var sb strings.Builder
	for _, p := range points {
		idx := 0
		if hi > lo {
			idx = int((p.Value - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return sb.String()
}
