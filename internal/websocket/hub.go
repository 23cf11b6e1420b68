// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// gaugeRefreshInterval is how often RunWithContext re-publishes the connection gauge.
const gaugeRefreshInterval = 15 * time.Second

// Hub is the registry of live connections.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     logging.WithComponent("websocket-hub"),
	}
}

// Attach registers c. It returns false when c is already registered or has
// already been closed; in both cases the registry is unchanged.
func (h *Hub) Attach(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		return false
	}
	if c.isClosed() {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.WSConnections.Set(float64(len(h.clients)))

	h.log.Info().
		Uint64("client_id", c.ID()).
		Str("conn_id", c.ConnID()).
		Int("total_clients", len(h.clients)).
		Msg("websocket client attached")
	return true
}

// Detach removes c and closes its outbound queue. Detaching an unknown or
// already detached client is a no-op that returns false.
func (h *Hub) Detach(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detachLocked(c)
}

func (h *Hub) detachLocked(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		c.closeSend()
		return false
	}
	delete(h.clients, c)
	c.closeSend()
	metrics.WSConnections.Set(float64(len(h.clients)))

	h.log.Info().
		Uint64("client_id", c.ID()).
		Str("conn_id", c.ConnID()).
		Int("total_clients", len(h.clients)).
		Msg("websocket client detached")
	return true
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast enqueues payload on every registered client and returns the number
// of clients it was delivered to. Clients that cannot accept the frame are
// detached. Clients are visited in ID order.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedLocked()

	var failed []*Client
	delivered := 0
	for _, c := range clients {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		failed = append(failed, c)
	}

	for _, c := range failed {
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		h.log.Warn().
			Uint64("client_id", c.ID()).
			Str("conn_id", c.ConnID()).
			Msg("client cannot accept broadcast, detaching")
		h.detachLocked(c)
	}
	return delivered
}

// BroadcastMessage encodes v once and broadcasts the resulting frame.
func (h *Hub) BroadcastMessage(v interface{}) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode broadcast: %w", err)
	}
	return h.Broadcast(payload), nil
}

// RunWithContext keeps the connection gauge fresh and, when ctx ends, closes
// every client. It is meant to run under a supervisor.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(gaugeRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			closed := h.closeAll()
			h.log.Info().
				Str("reason", string(shutdownReason(ctx))).
				Int("clients_closed", closed).
				Msg("websocket hub stopped")
			return ctx.Err()
		case <-ticker.C:
			metrics.WSConnections.Set(float64(h.Count()))
		}
	}
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedLocked()
	for _, c := range clients {
		delete(h.clients, c)
		c.closeSend()
	}
	metrics.WSConnections.Set(0)
	return len(clients)
}

func (h *Hub) sortedLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}
