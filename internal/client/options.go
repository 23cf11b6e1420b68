// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package client

import (
	"time"

	"github.com/tomtom215/farmmonitor/internal/config"
)

// Options configures a Manager. Zero values take the defaults listed on
// DefaultOptions, except SynthesizeOnFailure which is honored as given.
type Options struct {
	// Candidate discovery. See Candidates.
	URL         string
	Port        int
	PageURL     string
	DefaultPort int
	Path        string

	// PollURL and AuthToken configure the default HTTP fetcher.
	PollURL   string
	AuthToken string

	BaseDelay            time.Duration
	MaxReconnectAttempts int
	PollInterval         time.Duration
	SafetyPollInterval   time.Duration

	// SynthesizeOnFailure replaces a failed poll with a plausible local
	// reading. When false the dashboard is marked stale instead.
	SynthesizeOnFailure bool

	Dialer  Dialer
	Fetcher Fetcher

	// Now and Rand are test hooks.
	Now  func() time.Time
	Rand func() float64
}

// DefaultOptions returns the stock timing: 1s base delay, 5 reconnect attempts,
// a 10s poll interval and a 30s safety poll.
func DefaultOptions() Options {
	return Options{
		PageURL:              "http://localhost",
		DefaultPort:          DefaultPort,
		Path:                 DefaultPath,
		BaseDelay:            time.Second,
		MaxReconnectAttempts: 5,
		PollInterval:         10 * time.Second,
		SafetyPollInterval:   30 * time.Second,
		SynthesizeOnFailure:  true,
	}
}

// OptionsFromConfig maps the client section of the application config.
func OptionsFromConfig(cfg *config.ClientConfig) Options {
	return Options{
		URL:                  cfg.URL,
		Port:                 cfg.Port,
		PageURL:              cfg.PageURL,
		DefaultPort:          cfg.DefaultPort,
		Path:                 cfg.Path,
		PollURL:              cfg.PollURL,
		AuthToken:            cfg.AuthToken,
		BaseDelay:            cfg.BaseDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		PollInterval:         cfg.PollInterval,
		SafetyPollInterval:   cfg.SafetyPollInterval,
		SynthesizeOnFailure:  cfg.SynthesizeOnFailure,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.SafetyPollInterval <= 0 {
		o.SafetyPollInterval = d.SafetyPollInterval
	}
	if o.Dialer == nil {
		o.Dialer = NewWebSocketDialer()
	}
	if o.Fetcher == nil && o.PollURL != "" {
		o.Fetcher = NewHTTPFetcher(o.PollURL, o.AuthToken, nil)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Rand == nil {
		o.Rand = randFloat
	}
}
