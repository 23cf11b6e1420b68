// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package client

import (
	"sync"
	"time"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/threshold"
)

// Notifier raises a native notification for an alert. A nil Notifier means the
// user has not granted permission.
type Notifier interface {
	Notify(alert threshold.Alert) error
}

// DashboardOptions configures a Dashboard. Zero values take the defaults: a
// 20 point chart window, 10 second notifications and 50 retained alerts.
type DashboardOptions struct {
	Evaluator   *threshold.Evaluator
	ChartWindow int
	AlertTTL    time.Duration
	MaxAlerts   int
	Notifier    Notifier
	Now         func() time.Time

	// OnChange runs after every update, on the caller's goroutine.
	OnChange func()
}

// SensorValue is one displayed reading.
type SensorValue struct {
	Sensor string           `json:"sensor"`
	Label  string           `json:"label"`
	Value  float64          `json:"value"`
	Unit   string           `json:"unit,omitempty"`
	Status threshold.Status `json:"status"`
}

// ChartPoint is one sample in a rolling chart buffer.
type ChartPoint struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// AlertEntry is an alert in the history list.
type AlertEntry struct {
	threshold.Alert
	ReceivedAt time.Time `json:"received_at"`
}

// Notification is a transient alert banner.
type Notification struct {
	threshold.Alert
	ExpiresAt time.Time `json:"expires_at"`
}

// View is a point-in-time copy of the dashboard.
type View struct {
	State         State                   `json:"state"`
	Values        []SensorValue           `json:"values"`
	Charts        map[string][]ChartPoint `json:"charts"`
	Alerts        []AlertEntry            `json:"alerts"`
	Notifications []Notification          `json:"notifications"`
	LastUpdate    time.Time               `json:"last_update"`
	Source        Source                  `json:"source,omitempty"`
	Stale         bool                    `json:"stale"`
	StaleReason   string                  `json:"stale_reason,omitempty"`
}

// Dashboard is the view model behind farmwatch. It implements Handler.
type Dashboard struct {
	opts DashboardOptions

	mu            sync.Mutex
	state         State
	values        map[string]float64
	charts        map[string][]ChartPoint
	alerts        []AlertEntry
	notifications []Notification
	lastUpdate    time.Time
	source        Source
	stale         bool
	staleReason   string
}

// NewDashboard creates an empty dashboard.
func NewDashboard(opts DashboardOptions) *Dashboard {
	if opts.Evaluator == nil {
		opts.Evaluator = threshold.NewDefault()
	}
	if opts.ChartWindow <= 0 {
		opts.ChartWindow = 20
	}
	if opts.AlertTTL <= 0 {
		opts.AlertTTL = 10 * time.Second
	}
	if opts.MaxAlerts <= 0 {
		opts.MaxAlerts = 50
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dashboard{
		opts:   opts,
		values: make(map[string]float64),
		charts: make(map[string][]ChartPoint),
	}
}

// OnState implements Handler.
func (d *Dashboard) OnState(state State) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
	d.changed()
}

// OnMessage implements Handler. initial_data seeds the display exactly like a
// sensor_update; alert raises a notification without touching values.
func (d *Dashboard) OnMessage(msg models.ServerMessage) {
	switch msg.Type {
	case models.MessageTypeSensorUpdate, models.MessageTypeInitialData:
		if len(msg.Data) == 0 && len(msg.Alerts) == 0 {
			return
		}
		d.mu.Lock()
		if len(msg.Data) > 0 {
			d.applyLocked(msg.Data, SourceLive)
		}
		d.mu.Unlock()
		for _, a := range msg.Alerts {
			d.raise(a)
		}
	case models.MessageTypeAlert:
		if msg.Alert == nil {
			return
		}
		d.raise(*msg.Alert)
	default:
		return
	}
	d.changed()
}

// OnData implements Handler for polled and synthesized values.
func (d *Dashboard) OnData(data map[string]float64, source Source) {
	d.mu.Lock()
	d.applyLocked(data, source)
	d.mu.Unlock()
	d.changed()
}

// OnStale implements Handler. Values are kept but flagged as out of date.
func (d *Dashboard) OnStale(err error) {
	d.mu.Lock()
	d.stale = true
	if err != nil {
		d.staleReason = err.Error()
	}
	d.mu.Unlock()
	d.changed()
}

func (d *Dashboard) applyLocked(data map[string]float64, source Source) {
	now := d.opts.Now()
	for _, sensor := range threshold.SortedKeys(data) {
		v := data[sensor]
		d.values[sensor] = v

		buf := append(d.charts[sensor], ChartPoint{At: now, Value: v})
		if over := len(buf) - d.opts.ChartWindow; over > 0 {
			buf = append([]ChartPoint(nil), buf[over:]...)
		}
		d.charts[sensor] = buf
	}
	d.lastUpdate = now
	d.source = source
	d.stale = false
	d.staleReason = ""
}

// raise shows a transient notification, records the alert newest first and
// forwards it to the native notifier.
func (d *Dashboard) raise(a threshold.Alert) {
	now := d.opts.Now()

	d.mu.Lock()
	d.notifications = append(d.notifications, Notification{Alert: a, ExpiresAt: now.Add(d.opts.AlertTTL)})
	d.alerts = append([]AlertEntry{{Alert: a, ReceivedAt: now}}, d.alerts...)
	if len(d.alerts) > d.opts.MaxAlerts {
		d.alerts = d.alerts[:d.opts.MaxAlerts]
	}
	d.mu.Unlock()

	if d.opts.Notifier != nil {
		if err := d.opts.Notifier.Notify(a); err != nil {
			logging.Debug().Err(err).Str("sensor", a.Sensor).Msg("native notification failed")
		}
	}
}

func (d *Dashboard) changed() {
	if d.opts.OnChange != nil {
		d.opts.OnChange()
	}
}

// View returns a copy of the current state. Expired notifications are dropped.
func (d *Dashboard) View() View {
	now := d.opts.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	active := d.notifications[:0]
	for _, n := range d.notifications {
		if now.Before(n.ExpiresAt) {
			active = append(active, n)
		}
	}
	d.notifications = active

	v := View{
		State:         d.state,
		Values:        make([]SensorValue, 0, len(d.values)),
		Charts:        make(map[string][]ChartPoint, len(d.charts)),
		Alerts:        append([]AlertEntry(nil), d.alerts...),
		Notifications: append([]Notification(nil), active...),
		LastUpdate:    d.lastUpdate,
		Source:        d.source,
		Stale:         d.stale,
		StaleReason:   d.staleReason,
	}
	for _, sensor := range threshold.SortedKeys(d.values) {
		value := d.values[sensor]
		v.Values = append(v.Values, SensorValue{
			Sensor: sensor,
			Label:  threshold.Label(sensor),
			Value:  value,
			Unit:   threshold.Unit(sensor),
			Status: d.opts.Evaluator.Status(sensor, value),
		})
	}
	for sensor, buf := range d.charts {
		v.Charts[sensor] = append([]ChartPoint(nil), buf...)
	}
	return v
}
