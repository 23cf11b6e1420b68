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
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/farmmonitor/internal/models"
	"github.com/tomtom215/farmmonitor/internal/realtime"
	"github.com/tomtom215/farmmonitor/internal/sysinfo"
	"github.com/tomtom215/farmmonitor/internal/websocket"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type pushEnv struct {
	hub    *websocket.Hub
	server *realtime.Server
	http   *httptest.Server
}

func newPushEnv(t *testing.T) *pushEnv {
	t.Helper()
	hub := websocket.NewHub()
	srv := realtime.NewServer(hub, realtime.Options{Now: func() time.Time { return fixedNow }})
	mw := testMiddleware()
	h := NewPushHandler(srv, PushHandlerOptions{
		ClientOptions: websocket.DefaultClientOptions(),
		AllowOrigin:   mw.AllowsOrigin,
	})
	ts := httptest.NewServer(NewPushRouter(h, mw))
	t.Cleanup(ts.Close)
	return &pushEnv{hub: hub, server: srv, http: ts}
}

func (e *pushEnv) dial(t *testing.T, header http.Header) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *pushEnv) waitForClients(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, e.hub.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readServerMessage(t *testing.T, conn *gorillaws.Conn) models.ServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg models.ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return msg
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, data interface{}) models.RawAPIResponse {
	t.Helper()
	var env models.RawAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

func TestPush_BroadcastReachesWebSocketClients(t *testing.T) {
	env := newPushEnv(t)
	conn := env.dial(t, nil)
	env.waitForClients(t, 1)

	resp := postJSON(t, env.http.URL+"/broadcast",
		`{"type":"sensor_data","data":{"temperature":38.5,"humidity":55}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result realtime.IngestResult
	decodeResponse(t, resp, &result)
	if result.Recipients != 1 {
		t.Errorf("Expected 1 recipient, got %d", result.Recipients)
	}
	if len(result.Alerts) != 1 || result.Alerts[0].Sensor != "temperature" {
		t.Errorf("Expected one temperature alert, got %+v", result.Alerts)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != models.MessageTypeSensorUpdate {
		t.Fatalf("Expected sensor_update, got %s", msg.Type)
	}
	if msg.Data["humidity"] != 55 || msg.Timestamp != fixedNow.Unix() {
		t.Errorf("Unexpected update: %+v", msg)
	}
}

func TestPush_BroadcastAcceptsBareReading(t *testing.T) {
	env := newPushEnv(t)

	resp := postJSON(t, env.http.URL+"/broadcast", `{"device_id":"gh-1","soil_moisture":42}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if got := env.server.Snapshot()["soil_moisture"]; got != 42 {
		t.Errorf("Expected soil_moisture 42 in snapshot, got %v", got)
	}
}

func TestPush_BroadcastRejectsMalformed(t *testing.T) {
	env := newPushEnv(t)

	for _, body := range []string{`not json`, `{"type":"ping"}`, `[1,2]`} {
		resp := postJSON(t, env.http.URL+"/broadcast", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
	if len(env.server.Snapshot()) != 0 {
		t.Error("Malformed payloads must not touch the snapshot")
	}
}

func TestPush_NewConnectionGetsInitialData(t *testing.T) {
	env := newPushEnv(t)
	env.server.Ingest(map[string]float64{"temperature": 21}, realtime.SourceBridge)

	conn := env.dial(t, nil)
	msg := readServerMessage(t, conn)

	if msg.Type != models.MessageTypeInitialData {
		t.Fatalf("Expected initial_data, got %s", msg.Type)
	}
	if msg.Data["temperature"] != 21 {
		t.Errorf("Expected temperature 21, got %v", msg.Data)
	}
}

func TestPush_WebSocketOriginCheck(t *testing.T) {
	env := newPushEnv(t)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"

	_, resp, err := gorillaws.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("Expected upgrade from unknown origin to fail")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}

	env.dial(t, http.Header{"Origin": {"https://farm.example"}})
	env.waitForClients(t, 1)
}

func TestPush_LatestData(t *testing.T) {
	env := newPushEnv(t)
	env.server.Ingest(map[string]float64{"humidity": 90}, realtime.SourceMQTT)

	resp, err := http.Get(env.http.URL + "/api/v1/realtime/data")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var snap models.Snapshot
	decodeResponse(t, resp, &snap)
	got := snap.Readings["humidity"]
	if got.Value != 90 || got.Status != "high" || got.Unit != "%" {
		t.Errorf("Unexpected humidity view: %+v", got)
	}
}

func TestPush_PushAlert(t *testing.T) {
	env := newPushEnv(t)
	conn := env.dial(t, nil)
	env.waitForClients(t, 1)

	resp := postJSON(t, env.http.URL+"/api/v1/realtime/alert",
		`{"sensor":"humidity","message":"Vent stuck open","value":12,"threshold":30}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != models.MessageTypeAlert || msg.Alert == nil {
		t.Fatalf("Expected alert frame, got %+v", msg)
	}
	if msg.Alert.Type != "warning" || msg.Alert.Message != "Vent stuck open" {
		t.Errorf("Unexpected alert: %+v", msg.Alert)
	}
}

func TestPush_PushAlertValidation(t *testing.T) {
	env := newPushEnv(t)

	resp := postJSON(t, env.http.URL+"/api/v1/realtime/alert", `{"sensor":"rainfall","message":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
	env2 := decodeResponse(t, resp, nil)
	if env2.Error == nil || env2.Error.Code == "" {
		t.Error("Expected an error code")
	}
}

type stubHost struct{}

func (stubHost) Collect(context.Context) sysinfo.HostStats {
	return sysinfo.HostStats{Goroutines: 7}
}

func TestPush_HealthReady(t *testing.T) {
	hub := websocket.NewHub()
	srv := realtime.NewServer(hub, realtime.Options{})
	health := NewHealthReporter("1.2.3", stubHost{})
	h := NewPushHandler(srv, PushHandlerOptions{Health: health})
	router := NewPushRouter(h, testMiddleware())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status models.HealthStatus
	decodeEnvelope(t, rec, &status)
	if status.Status != "ready" || status.Version != "1.2.3" {
		t.Errorf("Unexpected status: %+v", status)
	}
	if status.Host == nil {
		t.Error("Expected host stats")
	}

	health.AddCheck("broker", func(context.Context) error { return errors.New("unreachable") })
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 with failing check, got %d", rec.Code)
	}
	decodeEnvelope(t, rec, &status)
	if status.Checks["broker"] != "unreachable" {
		t.Errorf("Expected failing check detail, got %v", status.Checks)
	}
}

func TestPush_LiveAndMetrics(t *testing.T) {
	env := newPushEnv(t)

	for _, path := range []string{"/api/v1/health/live", "/metrics"} {
		resp, err := http.Get(env.http.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(env.http.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown route, got %d", resp.StatusCode)
	}
}
