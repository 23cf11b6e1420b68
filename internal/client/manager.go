// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/models"
)

// State is the connection status shown to the user.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
	StateFailed       State = "failed"
	StatePolling      State = "polling"
)

// Source says where the most recent values came from.
type Source string

const (
	SourceLive      Source = "live"
	SourcePoll      Source = "poll"
	SourceSynthetic Source = "synthetic"
)

var (
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("client: manager closed")
	// ErrNotConnected is returned by Ping when no socket is open.
	ErrNotConnected = errors.New("client: not connected")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("client: manager already started")

	errNoFetcher = errors.New("client: no poll endpoint configured")
)

// Handler receives manager events. Every method is called from the manager
// loop goroutine, one at a time, and no method starts once Close has been
// called.
//
// A Handler may call Close and Ping. Close called from inside a callback marks
// the manager closed and returns without waiting for the loop to exit. Ping
// called from inside a callback is queued for the loop and returns nil; a
// failed write then shows up as a state change.
type Handler interface {
	OnState(state State)
	OnMessage(msg models.ServerMessage)
	OnData(data map[string]float64, source Source)
	OnStale(err error)
}

type dialResult struct {
	gen  uint64
	url  string
	conn Conn
	err  error
}

type connClosed struct {
	gen uint64
	err error
}

type frame struct {
	gen uint64
	msg models.ServerMessage
}

type fetchResult struct {
	snap models.Snapshot
	err  error
}

type pingRequest struct {
	reply chan error
}

// Manager maintains one live connection to farmpush with candidate discovery,
// reconnection and a polling fallback.
type Manager struct {
	opts       Options
	handler    Handler
	candidates []string
	sessionID  string
	log        zerolog.Logger

	events   chan interface{}
	pings    chan struct{}
	quit     chan struct{}
	stopping chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	mu        sync.RWMutex
	state     State
	started   bool
	closed    bool
	closeOnce sync.Once

	// Set while the loop is inside a Handler method.
	dispatching atomic.Bool

	// Owned by the loop goroutine.
	ctx               context.Context
	cancel            context.CancelFunc
	conn              Conn
	gen               uint64
	attemptIndex      int
	reconnectAttempts int
	everConnected     bool
	lastGood          string
	reconnectTimer    *time.Timer
	pollTicker        *time.Ticker
	fetching          bool
}

// NewManager creates a Manager. Nothing is dialed until Start.
func NewManager(opts Options, handler Handler) *Manager {
	opts.applyDefaults()
	id := uuid.NewString()
	return &Manager{
		opts:       opts,
		handler:    handler,
		candidates: Candidates(opts),
		sessionID:  id,
		log:        logging.WithComponent("client").With().Str("session_id", id).Logger(),
		events:     make(chan interface{}),
		pings:      make(chan struct{}, 1),
		quit:       make(chan struct{}),
		stopping:   make(chan struct{}),
		done:       make(chan struct{}),
		state:      StateConnecting,
	}
}

// Candidates returns the URLs tried during discovery, in order.
func (m *Manager) Candidates() []string {
	out := make([]string, len(m.candidates))
	copy(out, m.candidates)
	return out
}

// SessionID identifies this manager in logs.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// State returns the current connection status.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Start launches the event loop and dials the first candidate. Cancelling ctx
// has the same effect as Close, except that Close also waits.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)

	go m.run()
	return nil
}

// Ping sends {"type":"ping"} on the live connection.
func (m *Manager) Ping() error {
	m.mu.RLock()
	started, closed := m.started, m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !started {
		return ErrNotConnected
	}
	if m.dispatching.Load() {
		select {
		case m.pings <- struct{}{}:
		default:
		}
		return nil
	}

	req := pingRequest{reply: make(chan error, 1)}
	select {
	case m.events <- req:
	case <-m.stopping:
		return ErrClosed
	}
	select {
	case err := <-req.reply:
		return err
	case <-m.stopping:
		return ErrClosed
	}
}

// Close cancels every timer and in-flight dial or fetch, closes the socket and
// waits for the loop to exit. It is safe to call more than once. From inside a
// Handler method it only signals the loop, which exits once the callback
// returns.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.quit)
	})

	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()
	if started && !m.dispatching.Load() {
		<-m.done
	}
	return nil
}

func (m *Manager) run() {
	defer close(m.done)
	defer m.shutdown()

	safety := time.NewTicker(m.opts.SafetyPollInterval)
	defer safety.Stop()

	m.log.Info().Strs("candidates", m.candidates).Msg("connecting")
	m.notify(func(h Handler) { h.OnState(StateConnecting) })
	m.dial(m.candidates[0])

	for {
		var reconnectC, pollC <-chan time.Time
		if m.reconnectTimer != nil {
			reconnectC = m.reconnectTimer.C
		}
		if m.pollTicker != nil {
			pollC = m.pollTicker.C
		}

		select {
		case <-m.quit:
			return
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.handle(ev)
		case <-m.pings:
			if err := m.ping(); err != nil {
				m.log.Debug().Err(err).Msg("queued ping not sent")
			}
		case <-reconnectC:
			m.reconnectTimer = nil
			m.dial(m.lastGood)
		case <-pollC:
			m.fetch()
		case <-safety.C:
			switch m.currentState() {
			case StateConnected, StatePolling:
			default:
				m.fetch()
			}
		}
	}
}

func (m *Manager) shutdown() {
	close(m.stopping)
	m.stopReconnect()
	if m.pollTicker != nil {
		m.pollTicker.Stop()
		m.pollTicker = nil
	}
	m.gen++
	m.closeConn()
	m.cancel()
	m.wg.Wait()
	m.log.Debug().Msg("client stopped")
}

func (m *Manager) handle(ev interface{}) {
	switch e := ev.(type) {
	case dialResult:
		m.onDial(e)
	case connClosed:
		if e.gen != m.gen {
			return
		}
		m.log.Info().Err(e.err).Str("url", m.lastGood).Msg("connection closed")
		m.lostConn()
	case frame:
		if e.gen != m.gen {
			return
		}
		m.notify(func(h Handler) { h.OnMessage(e.msg) })
	case fetchResult:
		m.onFetch(e)
	case pingRequest:
		e.reply <- m.ping()
	}
}

// post delivers ev to the loop unless the loop is shutting down.
func (m *Manager) post(ev interface{}) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.stopping:
		return false
	}
}

// lostConn retires the live socket and applies the reconnect policy.
func (m *Manager) lostConn() {
	m.gen++
	m.closeConn()
	m.setState(StateDisconnected)
	m.scheduleReconnect()
}

func (m *Manager) dial(url string) {
	m.gen++
	gen := m.gen
	m.setState(StateConnecting)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		conn, err := m.opts.Dialer.DialContext(m.ctx, url)
		if !m.post(dialResult{gen: gen, url: url, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (m *Manager) onDial(r dialResult) {
	if r.gen != m.gen {
		if r.conn != nil {
			_ = r.conn.Close()
		}
		return
	}

	if r.err != nil {
		m.log.Warn().Err(r.err).Str("url", r.url).Msg("connection attempt failed")
		m.setState(StateError)
		m.onConnectFailure()
		return
	}

	m.conn = r.conn
	m.everConnected = true
	m.lastGood = r.url
	m.reconnectAttempts = 0
	m.setState(StateConnected)
	m.log.Info().Str("url", r.url).Msg("connected")

	gen := m.gen
	conn := r.conn
	m.wg.Add(1)
	go m.readLoop(gen, conn)
}

// onConnectFailure advances discovery immediately while no candidate has ever
// opened, and applies the reconnect policy afterwards.
func (m *Manager) onConnectFailure() {
	if !m.everConnected {
		if m.attemptIndex < len(m.candidates)-1 {
			m.attemptIndex++
			m.dial(m.candidates[m.attemptIndex])
			return
		}
		m.log.Warn().Int("candidates", len(m.candidates)).Msg("all connection candidates failed")
		m.fail()
		return
	}
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	if m.reconnectAttempts >= m.opts.MaxReconnectAttempts {
		m.log.Warn().Int("attempts", m.reconnectAttempts).Msg("reconnect attempts exhausted")
		m.fail()
		return
	}
	m.reconnectAttempts++
	delay := m.opts.BaseDelay * time.Duration(m.reconnectAttempts)
	m.setState(StateReconnecting)
	m.log.Info().Int("attempt", m.reconnectAttempts).Dur("delay", delay).Msg("reconnecting")

	m.stopReconnect()
	m.reconnectTimer = time.NewTimer(delay)
}

func (m *Manager) fail() {
	m.setState(StateFailed)
	m.startPolling()
}

func (m *Manager) startPolling() {
	m.stopReconnect()
	m.gen++
	m.closeConn()
	m.setState(StatePolling)
	m.log.Info().Dur("interval", m.opts.PollInterval).Msg("starting polling fallback")

	m.pollTicker = time.NewTicker(m.opts.PollInterval)
	m.fetch()
}

func (m *Manager) stopReconnect() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) closeConn() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	defer m.wg.Done()
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.post(connClosed{gen: gen, err: err})
			return
		}
		var msg models.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			m.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		if !m.post(frame{gen: gen, msg: msg}) {
			return
		}
	}
}

func (m *Manager) fetch() {
	if m.fetching {
		return
	}
	if m.opts.Fetcher == nil {
		m.onFetch(fetchResult{err: errNoFetcher})
		return
	}
	m.fetching = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.ctx, fetchTimeout)
		defer cancel()
		snap, err := m.opts.Fetcher.Fetch(ctx)
		m.post(fetchResult{snap: snap, err: err})
	}()
}

func (m *Manager) onFetch(r fetchResult) {
	m.fetching = false
	if m.currentState() == StateConnected {
		return
	}

	if r.err == nil {
		values := r.snap.Values()
		m.notify(func(h Handler) { h.OnData(values, SourcePoll) })
		return
	}

	m.log.Warn().Err(r.err).Msg("failed to fetch latest data")
	if m.opts.SynthesizeOnFailure {
		values := synthesize(m.opts.Rand)
		m.notify(func(h Handler) { h.OnData(values, SourceSynthetic) })
		return
	}
	m.notify(func(h Handler) { h.OnStale(r.err) })
}

func (m *Manager) ping() error {
	if m.conn == nil || m.currentState() != StateConnected {
		return ErrNotConnected
	}
	payload, err := json.Marshal(models.PingEnvelope{Type: models.MessageTypePing})
	if err != nil {
		return err
	}
	if err := m.conn.WriteMessage(payload); err != nil {
		m.log.Info().Err(err).Str("url", m.lastGood).Msg("ping write failed")
		m.lostConn()
		return err
	}
	return nil
}

func (m *Manager) currentState() State {
	return m.State()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()
	if changed {
		m.notify(func(h Handler) { h.OnState(s) })
	}
}

// notify runs fn against the handler unless Close has been called.
func (m *Manager) notify(fn func(Handler)) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return
	}
	m.dispatching.Store(true)
	defer m.dispatching.Store(false)
	fn(m.handler)
}
