// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
)

// Handler receives connection lifecycle events from a Client's read pump.
// All three methods are called from the read pump goroutine of the client
// concerned.
type Handler interface {
	OnMessage(c *Client, raw []byte)
	OnClose(c *Client)
	OnError(c *Client, err error)
}

// ClientOptions tunes per-connection limits.
type ClientOptions struct {
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration

	// MessagesPerSecond and Burst bound inbound frames; excess frames are dropped.
	MessagesPerSecond float64
	Burst             int
}

// DefaultClientOptions returns the stock limits.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		SendBuffer:        256,
		MaxMessageSize:    512 * 1024,
		PongWait:          60 * time.Second,
		WriteWait:         10 * time.Second,
		MessagesPerSecond: 20,
		Burst:             40,
	}
}

func (o ClientOptions) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// clientIDCounter gives clients monotonically increasing IDs so broadcasts
// visit them in a stable order.
var clientIDCounter atomic.Uint64

// Client is one live browser connection.
type Client struct {
	id      uint64
	connID  string
	ctx     context.Context
	conn    *websocket.Conn
	opts    ClientOptions
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps conn. The client is inert until Start is called.
func NewClient(conn *websocket.Conn, opts ClientOptions) *Client {
	return NewClientContext(context.Background(), conn, opts)
}

// NewClientContext is NewClient with a parent context, usually the upgrade
// request's. Its values (request ID, logger) outlive the request and are
// joined by the connection ID in every pump log line.
func NewClientContext(ctx context.Context, conn *websocket.Conn, opts ClientOptions) *Client {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = DefaultClientOptions().SendBuffer
	}
	connID := uuid.NewString()
	return &Client{
		id:      clientIDCounter.Add(1),
		connID:  connID,
		ctx:     logging.ContextWithConnectionID(context.WithoutCancel(ctx), connID),
		conn:    conn,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
		send:    make(chan []byte, opts.SendBuffer),
	}
}

// ID returns the process-unique ordering key.
func (c *Client) ID() uint64 {
	return c.id
}

// ConnID returns the random identifier used in logs.
func (c *Client) ConnID() string {
	return c.connID
}

// Context carries the connection ID for logging.Ctx. It is never cancelled.
func (c *Client) Context() context.Context {
	return c.ctx
}

// RemoteAddr returns the peer address, or "" for an unconnected client.
func (c *Client) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// Send enqueues a frame for this client only. It returns false when the queue
// is full or the client is closed; the caller decides whether to detach.
func (c *Client) Send(payload []byte) bool {
	return c.enqueue(payload)
}

// Outbound exposes the queue drained by the write pump. Only useful for
// clients that were never started, such as in-process consumers in tests.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Close closes the outbound queue. The write pump then sends a close frame and
// tears down the connection.
func (c *Client) Close() {
	c.closeSend()
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Start launches the read and write pumps.
func (c *Client) Start(h Handler) {
	go c.writePump()
	go c.readPump(h)
}

func (c *Client) readPump(h Handler) {
	defer func() {
		h.OnClose(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		h.OnError(c, err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.OnError(c, err)
				return
			}
			logging.Ctx(c.ctx).Debug().Err(err).Msg("websocket read ended")
			return
		}
		if msgType != websocket.TextMessage {
			metrics.WSMessagesDropped.WithLabelValues("binary").Inc()
			continue
		}

		metrics.WSMessagesReceived.Inc()
		if !c.limiter.Allow() {
			metrics.WSMessagesDropped.WithLabelValues("rate_limited").Inc()
			logging.Ctx(c.ctx).Debug().Msg("inbound frame dropped by rate limit")
			continue
		}
		h.OnMessage(c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				metrics.WSErrors.WithLabelValues("write_deadline").Inc()
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Ctx(c.ctx).Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WSErrors.WithLabelValues("ping").Inc()
				return
			}
		}
	}
}
