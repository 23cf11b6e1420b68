// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/farmmonitor/internal/bridge"
	"github.com/tomtom215/farmmonitor/internal/cache"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/store"
	"github.com/tomtom215/farmmonitor/internal/threshold"
	"github.com/tomtom215/farmmonitor/internal/validation"
)

const (
	defaultChartHours = 24
	chartCacheTTL     = 30 * time.Second
)

// Forwarder pushes an accepted reading to the broadcast tier.
type Forwarder interface {
	Forward(ctx context.Context, reading *models.SensorReading) bridge.Result
}

// WebHandlerOptions configures a WebHandler. Store is required.
type WebHandlerOptions struct {
	Store     store.ReadingStore
	Latest    cache.LatestCache
	Forwarder Forwarder
	Evaluator *threshold.Evaluator
	// HistoryMaxHours caps the chart window. Zero leaves the validation
	// limit in place.
	HistoryMaxHours int
	Health          *HealthReporter
	Now             func() time.Time
}

// WebHandler serves the farmweb ingest and read endpoints.
type WebHandler struct {
	store     store.ReadingStore
	latest    cache.LatestCache
	charts    *cache.TTL[models.ChartSeries]
	forwarder Forwarder
	evaluator *threshold.Evaluator
	maxHours  int
	health    *HealthReporter
	now       func() time.Time
}

// NewWebHandler creates the web tier handler set.
func NewWebHandler(opts WebHandlerOptions) *WebHandler {
	if opts.Latest == nil {
		opts.Latest = cache.NewMemory(5 * time.Second)
	}
	if opts.Evaluator == nil {
		opts.Evaluator = threshold.NewDefault()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Health == nil {
		opts.Health = NewHealthReporter("", nil)
	}
	opts.Health.AddCheck("database", opts.Store.Ping)

	return &WebHandler{
		store:     opts.Store,
		latest:    opts.Latest,
		charts:    cache.NewTTL[models.ChartSeries](chartCacheTTL),
		forwarder: opts.Forwarder,
		evaluator: opts.Evaluator,
		maxHours:  opts.HistoryMaxHours,
		health:    opts.Health,
		now:       opts.Now,
	}
}

// Close stops the chart cache sweeper.
func (h *WebHandler) Close() {
	h.charts.Close()
}

// IngestReading validates and stores one device submission, then forwards it
// to the broadcast tier. The response is 201 whatever the bridge outcome.
func (h *WebHandler) IngestReading(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	var reading models.SensorReading
	if err := decodeJSONBody(w, r, &reading); err != nil {
		metrics.IngestRequests.WithLabelValues("invalid").Inc()
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&reading); verr != nil {
		metrics.IngestRequests.WithLabelValues("invalid").Inc()
		rw.ValidationError(verr)
		return
	}
	values := reading.Values()
	if len(values) == 0 {
		metrics.IngestRequests.WithLabelValues("invalid").Inc()
		rw.BadRequest("Reading carries no sensor values")
		return
	}
	if reading.RecordedAt == nil {
		ts := h.now().UTC()
		reading.RecordedAt = &ts
	}

	stored, err := h.store.Insert(ctx, &reading)
	if err != nil {
		metrics.IngestRequests.WithLabelValues("store_error").Inc()
		rw.DatabaseError(err)
		return
	}
	metrics.IngestRequests.WithLabelValues("accepted").Inc()

	h.latest.Invalidate(ctx)
	h.charts.Clear()

	forwarded := false
	if h.forwarder != nil {
		forwarded = h.forwarder.Forward(ctx, &reading).OK()
	}

	logging.Ctx(ctx).Info().
		Str("device_id", sanitizeLogValue(reading.DeviceID)).
		Int("stored", stored).
		Bool("forwarded", forwarded).
		Msg("Sensor reading accepted")

	rw.Created(models.IngestResponse{
		DeviceID:   reading.DeviceID,
		Stored:     stored,
		Forwarded:  forwarded,
		Data:       values,
		Alerts:     h.evaluator.EvaluateAll(values),
		RecordedAt: *reading.RecordedAt,
	})
}

// LatestData serves the newest value per sensor type with status and unit.
func (h *WebHandler) LatestData(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	snap, cached, err := h.snapshot(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithMeta(snap, &models.APIMeta{Cached: cached})
}

// Chart serves history points grouped per sensor type.
func (h *WebHandler) Chart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	hours, err := getIntParam(r, "hours", defaultChartHours)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	q := models.ChartQuery{Hours: hours, SensorType: r.URL.Query().Get("sensor_type")}
	if verr := validation.ValidateStruct(&q); verr != nil {
		rw.ValidationError(verr)
		return
	}
	if h.maxHours > 0 && q.Hours > h.maxHours {
		q.Hours = h.maxHours
	}

	key := cache.GenerateKey("chart", q)
	if series, ok := h.charts.Get(key); ok {
		rw.SuccessWithMeta(series, &models.APIMeta{Cached: true})
		return
	}

	since := h.now().Add(-time.Duration(q.Hours) * time.Hour)
	points, err := h.store.History(r.Context(), since, q.SensorType)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	series := models.GroupHistory(points)
	h.charts.Set(key, series)
	rw.Success(series)
}

// Alerts evaluates thresholds over the latest values.
func (h *WebHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	snap, _, err := h.snapshot(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(models.AlertsResponse{
		Alerts:    h.evaluator.EvaluateAll(snap.Values()),
		Timestamp: h.now().Unix(),
	})
}

// HealthLive and HealthReady delegate to the shared reporter.
func (h *WebHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.Live(w, r)
}

func (h *WebHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.Ready(w, r)
}

// snapshot returns the latest view from the cache or, on a miss, from the
// store. An empty store yields an empty snapshot.
func (h *WebHandler) snapshot(ctx context.Context) (models.Snapshot, bool, error) {
	if snap, ok := h.latest.Get(ctx); ok {
		return snap, true, nil
	}

	samples, err := h.store.Latest(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.Snapshot{}, false, err
	}

	snap := models.Snapshot{
		Readings:  make(map[string]models.LatestValue, len(samples)),
		Timestamp: h.now().Unix(),
	}
	for sensorType, s := range samples {
		snap.Readings[sensorType] = models.LatestValue{
			Value:      s.Value,
			Status:     string(h.evaluator.Status(sensorType, s.Value)),
			Unit:       threshold.Unit(sensorType),
			DeviceID:   s.DeviceID,
			RecordedAt: s.RecordedAt,
		}
	}
	h.latest.Set(ctx, snap)
	return snap, false, nil
}
