// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package bridge forwards readings accepted by the web tier to the farmpush
// broadcast server over HTTP.
//
// Forwarding is best effort. Forward never returns an error: timeouts,
// refused connections and non-2xx replies are logged and reported in the
// Result, and the caller's ingest succeeds regardless. A circuit breaker stops
// the web tier from paying the full timeout on every request while the push
// tier is down.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/models"
)

// Outcome classifies one Forward call.
type Outcome string

const (
	// OutcomeOK means the broadcast server accepted the payload.
	OutcomeOK Outcome = "ok"
	// OutcomeFailed means the call was attempted and failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeRejected means the circuit breaker refused the call.
	OutcomeRejected Outcome = "rejected"
	// OutcomeSkipped means there was nothing to send or the bridge is disabled.
	OutcomeSkipped Outcome = "skipped"
)

// defaultTimeout applies when the configured timeout is not positive.
const defaultTimeout = 5 * time.Second

// breakerName labels the circuit breaker in metrics and logs.
const breakerName = "push-bridge"

// maxResponseBody caps how much of the reply is read.
const maxResponseBody = 64 * 1024

// Result describes a Forward call. Err is informational only.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Recipients int
	Duration   time.Duration
	Err        error
}

// OK reports whether the payload reached the broadcast server.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithHTTPClient replaces the default HTTP client. The bridge timeout still
// applies through the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bridge) {
		b.client = c
	}
}

// Bridge posts sensor_data envelopes to the broadcast server.
type Bridge struct {
	enabled bool
	url     string
	timeout time.Duration
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[int]
	log     zerolog.Logger
}

// New creates a Bridge from configuration.
func New(cfg config.BridgeConfig, opts ...Option) *Bridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	b := &Bridge{
		enabled: cfg.Enabled,
		url:     cfg.URL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     logging.WithComponent("bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	b.cb = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("bridge circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})
	return b
}

// Forward sends the bridged sensor values of reading. Missing sensors are
// left out of the payload.
func (b *Bridge) Forward(ctx context.Context, reading *models.SensorReading) Result {
	if reading == nil {
		return b.finish(ctx, Result{Outcome: OutcomeSkipped})
	}
	return b.ForwardValues(ctx, reading.BridgedValues())
}

// ForwardValues sends values as one sensor_data message.
func (b *Bridge) ForwardValues(ctx context.Context, values map[string]float64) Result {
	if !b.enabled || len(values) == 0 {
		return b.finish(ctx, Result{Outcome: OutcomeSkipped})
	}

	body, err := json.Marshal(models.SensorDataEnvelope{
		Type: models.MessageTypeSensorData,
		Data: values,
	})
	if err != nil {
		return b.finish(ctx, Result{Outcome: OutcomeFailed, Err: fmt.Errorf("encode payload: %w", err)})
	}

	start := time.Now()
	var status int
	recipients, err := b.cb.Execute(func() (int, error) {
		var n int
		var postErr error
		n, status, postErr = b.post(ctx, body)
		return n, postErr
	})
	res := Result{StatusCode: status, Recipients: recipients, Duration: time.Since(start), Err: err}

	switch {
	case err == nil:
		res.Outcome = OutcomeOK
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		res.Outcome = OutcomeRejected
	default:
		res.Outcome = OutcomeFailed
	}
	metrics.BridgeForwardDuration.Observe(res.Duration.Seconds())
	return b.finish(ctx, res)
}

// State returns the circuit breaker state as a string.
func (b *Bridge) State() string {
	return stateToString(b.cb.State())
}

func (b *Bridge) post(ctx context.Context, body []byte) (recipients, status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to broadcast server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, resp.StatusCode, fmt.Errorf("broadcast server returned %d", resp.StatusCode)
	}

	var reply struct {
		Data struct {
			Clients int `json:"clients"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		b.log.Debug().Err(err).Msg("unparseable broadcast server reply")
	}
	return reply.Data.Clients, resp.StatusCode, nil
}

func (b *Bridge) finish(ctx context.Context, res Result) Result {
	metrics.BridgeForwards.WithLabelValues(string(res.Outcome)).Inc()

	log := logging.Ctx(ctx)
	switch res.Outcome {
	case OutcomeOK:
		log.Debug().Int("clients", res.Recipients).Dur("duration", res.Duration).Msg("reading forwarded to broadcast server")
	case OutcomeFailed:
		log.Warn().Err(res.Err).Int("status", res.StatusCode).Str("url", b.url).Msg("bridge forward failed, dropping")
	case OutcomeRejected:
		log.Warn().Str("state", b.State()).Msg("bridge circuit open, dropping reading")
	case OutcomeSkipped:
		log.Debug().Bool("enabled", b.enabled).Msg("bridge forward skipped")
	}
	return res
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
