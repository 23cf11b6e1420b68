// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package websocket

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/farmmonitor/internal/logging"
)

// recordingHandler captures lifecycle events.
type recordingHandler struct {
	mu       sync.Mutex
	messages []string
	closed   int
	errors   int
	onClose  func(c *Client)
}

func (r *recordingHandler) OnMessage(_ *Client, raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, string(raw))
}

func (r *recordingHandler) OnClose(c *Client) {
	r.mu.Lock()
	r.closed++
	fn := r.onClose
	r.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

func (r *recordingHandler) OnError(_ *Client, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
}

func (r *recordingHandler) snapshot() (msgs []string, closed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...), r.closed
}

// newTestServer upgrades every request, attaches the client to hub and starts it.
func newTestServer(t *testing.T, hub *Hub, h Handler, opts ClientOptions) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewClient(conn, opts)
		hub.Attach(c)
		c.Start(h)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestClient_BroadcastReachesPeer(t *testing.T) {
	hub := NewHub()
	h := &recordingHandler{}
	srv := newTestServer(t, hub, h, DefaultClientOptions())

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.Broadcast([]byte(`{"type":"sensor_update"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"type":"sensor_update"}` {
		t.Errorf("got %s", data)
	}
}

func TestClient_InboundFramesReachHandler(t *testing.T) {
	hub := NewHub()
	h := &recordingHandler{}
	srv := newTestServer(t, hub, h, DefaultClientOptions())

	conn := dial(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, func() bool {
		msgs, _ := h.snapshot()
		return len(msgs) == 1
	})
	msgs, _ := h.snapshot()
	if msgs[0] != `{"type":"ping"}` {
		t.Errorf("handler got %q", msgs[0])
	}
}

func TestClient_RateLimitDropsExcessFrames(t *testing.T) {
	hub := NewHub()
	h := &recordingHandler{}
	opts := DefaultClientOptions()
	opts.MessagesPerSecond = 0.001
	opts.Burst = 2
	srv := newTestServer(t, hub, h, opts)

	conn := dial(t, srv)
	for i := 0; i < 5; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	waitFor(t, func() bool {
		_, closed := h.snapshot()
		return closed == 1
	})
	if msgs, _ := h.snapshot(); len(msgs) != 2 {
		t.Errorf("handler got %d messages, want 2 (burst)", len(msgs))
	}
}

func TestClient_PeerCloseTriggersOnClose(t *testing.T) {
	hub := NewHub()
	h := &recordingHandler{}
	h.onClose = func(c *Client) { hub.Detach(c) }
	srv := newTestServer(t, hub, h, DefaultClientOptions())

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 1 })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitFor(t, func() bool { return hub.Count() == 0 })
	if _, closed := h.snapshot(); closed != 1 {
		t.Errorf("OnClose called %d times, want 1", closed)
	}
}

func TestClient_CloseSendsCloseFrame(t *testing.T) {
	hub := NewHub()
	h := &recordingHandler{}
	srv := newTestServer(t, hub, h, DefaultClientOptions())

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.Count() == 1 })

	hub.mu.Lock()
	var c *Client
	for k := range hub.clients {
		c = k
	}
	hub.mu.Unlock()
	hub.Detach(c)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}

func TestClient_SendAfterClose(t *testing.T) {
	c := createTestClient(2)
	if !c.Send([]byte("a")) {
		t.Error("Send on open client should succeed")
	}
	c.Close()
	c.Close()
	if c.Send([]byte("b")) {
		t.Error("Send on closed client should fail")
	}
}

func TestClient_ContextCarriesConnectionID(t *testing.T) {
	var buf bytes.Buffer
	parent, cancel := context.WithCancel(context.Background())
	parent = logging.ContextWithRequestID(parent, "req-42")
	parent = logging.ContextWithLogger(parent, logging.NewTestLogger(&buf))

	c := NewClientContext(parent, nil, DefaultClientOptions())
	cancel()

	ctx := c.Context()
	if err := ctx.Err(); err != nil {
		t.Errorf("client context cancelled with the request: %v", err)
	}
	if got := logging.ConnectionIDFromContext(ctx); got != c.ConnID() {
		t.Errorf("conn_id = %q, want %q", got, c.ConnID())
	}
	if got := logging.RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("request_id = %q, want req-42", got)
	}

	logging.Ctx(ctx).Info().Msg("hello")
	out := buf.String()
	if !strings.Contains(out, `"conn_id":"`+c.ConnID()+`"`) || !strings.Contains(out, `"request_id":"req-42"`) {
		t.Errorf("log line = %s, want conn_id and request_id", out)
	}

	if got := logging.ConnectionIDFromContext(NewClient(nil, DefaultClientOptions()).Context()); got == "" {
		t.Error("NewClient should still tag its context with a connection ID")
	}
}
