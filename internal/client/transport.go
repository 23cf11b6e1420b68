// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/farmmonitor/internal/models"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
	fetchTimeout     = 5 * time.Second
	maxFetchBytes    = 1 << 20
)

// Conn is one open socket. ReadMessage is called from a single reader
// goroutine and WriteMessage only from the manager loop.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// Dialer opens a Conn to a WebSocket URL.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// Fetcher returns the latest snapshot over the request/response channel.
type Fetcher interface {
	Fetch(ctx context.Context) (models.Snapshot, error)
}

// WebSocketDialer dials with gorilla/websocket.
type WebSocketDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWebSocketDialer returns a dialer with a 10 second handshake timeout.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// DialContext implements Dialer.
func (d *WebSocketDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, d.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// HTTPFetcher reads the latest-data endpoint of farmweb or farmpush.
type HTTPFetcher struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for url. A non-empty token is sent as a
// bearer token. A nil client gets a 5 second timeout.
func NewHTTPFetcher(url, token string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &HTTPFetcher{url: url, token: token, client: client}
}

// Fetch implements Fetcher. Non-2xx statuses, non-JSON bodies and envelopes
// with success=false are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return snap, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return snap, fmt.Errorf("fetch latest data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return snap, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return snap, fmt.Errorf("fetch latest data: HTTP %d", resp.StatusCode)
	}

	var envelope models.RawAPIResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return snap, fmt.Errorf("response is not JSON: %w", err)
	}
	if !envelope.Success {
		if envelope.Error != nil {
			return snap, fmt.Errorf("fetch latest data: %s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return snap, errors.New("fetch latest data: unsuccessful response")
	}
	if err := json.Unmarshal(envelope.Data, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func randFloat() float64 {
	return rand.Float64() //nolint:gosec // display filler, not security sensitive
}

// synthesize fabricates a plausible reading for the three core sensors.
func synthesize(r func() float64) map[string]float64 {
	round := func(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
	return map[string]float64{
		models.SensorTemperature:  round(r()*10 + 20),
		models.SensorHumidity:     round(r()*20 + 50),
		models.SensorSoilMoisture: round(r()*20 + 30),
	}
}
