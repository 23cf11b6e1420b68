// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/farmmonitor/internal/auth"
	"github.com/tomtom215/farmmonitor/internal/bridge"
	"github.com/tomtom215/farmmonitor/internal/cache"
	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/store"
)

type recordingForwarder struct {
	mu       sync.Mutex
	readings []*models.SensorReading
	outcome  bridge.Outcome
}

func (f *recordingForwarder) Forward(_ context.Context, r *models.SensorReading) bridge.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return bridge.Result{Outcome: f.outcome}
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readings)
}

type webEnv struct {
	store     *store.SQLiteStore
	latest    *cache.Memory
	forwarder *recordingForwarder
	handler   *WebHandler
	router    http.Handler
	now       time.Time
}

func newWebEnv(t *testing.T, authn Authenticator) *webEnv {
	t.Helper()
	s, err := store.OpenSQLite("file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	latest := cache.NewMemory(time.Minute)
	env := &webEnv{
		store:     s,
		latest:    latest,
		forwarder: &recordingForwarder{outcome: bridge.OutcomeOK},
		now:       fixedNow,
	}
	env.handler = NewWebHandler(WebHandlerOptions{
		Store:     s,
		Latest:    latest,
		Forwarder: env.forwarder,
		Now:       func() time.Time { return env.now },
	})
	env.router = NewWebRouter(env.handler, testMiddleware(), authn)
	t.Cleanup(func() {
		env.handler.Close()
		_ = latest.Close()
		_ = s.Close()
	})
	return env
}

func (e *webEnv) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestWeb_IngestStoresAndForwards(t *testing.T) {
	env := newWebEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/sensors/data",
		`{"device_id":"gh-1","temperature":36,"humidity":50,"light":1200}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.IngestResponse
	decodeEnvelope(t, rec, &resp)
	if resp.Stored != 3 {
		t.Errorf("Expected 3 rows stored, got %d", resp.Stored)
	}
	if !resp.Forwarded {
		t.Error("Expected forwarded=true")
	}
	if len(resp.Alerts) != 1 || resp.Alerts[0].Sensor != "temperature" {
		t.Errorf("Expected one temperature alert, got %+v", resp.Alerts)
	}
	if !resp.RecordedAt.Equal(fixedNow) {
		t.Errorf("Expected recorded_at %v, got %v", fixedNow, resp.RecordedAt)
	}
	if env.forwarder.count() != 1 {
		t.Errorf("Expected one forward, got %d", env.forwarder.count())
	}
}

func TestWeb_IngestSucceedsWhenBridgeFails(t *testing.T) {
	env := newWebEnv(t, nil)
	env.forwarder.outcome = bridge.OutcomeFailed

	rec := env.do(t, http.MethodPost, "/api/v1/sensors/data", `{"device_id":"gh-1","humidity":50}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	var resp models.IngestResponse
	decodeEnvelope(t, rec, &resp)
	if resp.Forwarded {
		t.Error("Expected forwarded=false")
	}
}

func TestWeb_IngestRejectsInvalid(t *testing.T) {
	env := newWebEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"device_id":`},
		{"missing device", `{"temperature":20}`},
		{"out of range", `{"device_id":"gh-1","humidity":140}`},
		{"no values", `{"device_id":"gh-1"}`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/sensors/data", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
	if env.forwarder.count() != 0 {
		t.Errorf("Invalid readings must not be forwarded, got %d", env.forwarder.count())
	}
}

func TestWeb_LatestDataEmptyStore(t *testing.T) {
	env := newWebEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/realtime/data", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var snap models.Snapshot
	decodeEnvelope(t, rec, &snap)
	if len(snap.Readings) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", snap.Readings)
	}
}

func TestWeb_LatestDataCachedAndInvalidated(t *testing.T) {
	env := newWebEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/sensors/data", `{"device_id":"gh-1","soil_moisture":15}`, nil)

	first := env.do(t, http.MethodGet, "/api/v1/realtime/data", "", nil)
	var snap models.Snapshot
	decodeEnvelope(t, first, &snap)
	got := snap.Readings["soil_moisture"]
	if got.Value != 15 || got.Status != "low" || got.DeviceID != "gh-1" {
		t.Errorf("Unexpected soil_moisture: %+v", got)
	}

	second := env.do(t, http.MethodGet, "/api/v1/realtime/data", "", nil)
	var meta struct {
		Meta models.APIMeta `json:"meta"`
	}
	decodeInto(t, second, &meta)
	if !meta.Meta.Cached {
		t.Error("Expected second read to be served from cache")
	}

	env.now = fixedNow.Add(time.Minute)
	env.do(t, http.MethodPost, "/api/v1/sensors/data", `{"device_id":"gh-2","soil_moisture":55}`, nil)

	third := env.do(t, http.MethodGet, "/api/v1/realtime/data", "", nil)
	decodeEnvelope(t, third, &snap)
	if v := snap.Readings["soil_moisture"]; v.Value != 55 || v.Status != "normal" {
		t.Errorf("Expected fresh value after ingest, got %+v", v)
	}
}

func TestWeb_Chart(t *testing.T) {
	env := newWebEnv(t, nil)
	for i, temp := range []string{"18", "19", "20"} {
		env.now = fixedNow.Add(time.Duration(i) * time.Minute)
		env.do(t, http.MethodPost, "/api/v1/sensors/data", `{"device_id":"gh-1","temperature":`+temp+`,"humidity":60}`, nil)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/realtime/chart?hours=1&sensor_type=temperature", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var series models.ChartSeries
	decodeEnvelope(t, rec, &series)
	points := series["temperature"]
	if len(points) != 3 {
		t.Fatalf("Expected 3 temperature points, got %d", len(points))
	}
	if points[0].Value != 18 || points[2].Value != 20 {
		t.Errorf("Expected chronological order, got %+v", points)
	}
	if _, ok := series["humidity"]; ok {
		t.Error("Expected sensor_type filter to exclude humidity")
	}
}

func TestWeb_ChartValidation(t *testing.T) {
	env := newWebEnv(t, nil)

	for _, q := range []string{"hours=abc", "hours=0", "hours=10000", "sensor_type=rainfall"} {
		rec := env.do(t, http.MethodGet, "/api/v1/realtime/chart?"+q, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestWeb_Alerts(t *testing.T) {
	env := newWebEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/sensors/data", `{"device_id":"gh-1","temperature":5,"humidity":85}`, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/realtime/alerts", "", nil)
	var resp models.AlertsResponse
	decodeEnvelope(t, rec, &resp)

	if len(resp.Alerts) != 2 {
		t.Fatalf("Expected 2 alerts, got %+v", resp.Alerts)
	}
	if resp.Alerts[0].Sensor != "humidity" || resp.Alerts[1].Sensor != "temperature" {
		t.Errorf("Expected alerts in sorted sensor order, got %+v", resp.Alerts)
	}
}

func TestWeb_ReadEndpointsRequireToken(t *testing.T) {
	sec := &config.SecurityConfig{AuthMode: auth.ModeJWT, JWTSecret: "0123456789abcdef0123456789abcdef"}
	jwtManager, err := auth.NewJWTManager(sec)
	if err != nil {
		t.Fatal(err)
	}
	env := newWebEnv(t, auth.NewMiddleware(jwtManager, auth.ModeJWT))

	if rec := env.do(t, http.MethodGet, "/api/v1/realtime/data", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	token, err := jwtManager.GenerateToken("farmwatch", auth.RoleViewer)
	if err != nil {
		t.Fatal(err)
	}
	rec := env.do(t, http.MethodGet, "/api/v1/realtime/data", "", http.Header{"Authorization": {"Bearer " + token}})
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/sensors/data", `{"device_id":"gh-1","humidity":50}`, nil); rec.Code != http.StatusCreated {
		t.Errorf("Expected ingest to stay open, got %d", rec.Code)
	}
}

type failingStore struct {
	store.ReadingStore
}

func (failingStore) Latest(context.Context) (map[string]store.Sample, error) {
	return nil, errors.New("connection reset")
}

func (failingStore) Ping(context.Context) error { return errors.New("connection reset") }

func TestWeb_StoreFailures(t *testing.T) {
	h := NewWebHandler(WebHandlerOptions{Store: failingStore{}})
	defer h.Close()
	router := NewWebRouter(h, testMiddleware(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/realtime/data", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected readiness 503, got %d", rec.Code)
	}
}
