// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/farmmonitor/internal/client"
	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/threshold"
)

const (
	refreshInterval = time.Second
	pingInterval    = 30 * time.Second
)

type flags struct {
	configPath string
	url        string
	page       string
	poll       string
	token      string
	plain      bool
	notify     bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&f.url, "url", "", "WebSocket URL; skips candidate discovery")
	flag.StringVar(&f.page, "page", "", "origin the candidates are derived from, e.g. https://farm.example")
	flag.StringVar(&f.poll, "poll", "", "latest-data URL used by the polling fallback")
	flag.StringVar(&f.token, "token", "", "bearer token for the poll endpoint")
	flag.BoolVar(&f.plain, "plain", false, "append frames instead of redrawing the screen")
	flag.BoolVar(&f.notify, "notify", false, "ring the terminal bell on alerts")
	flag.Parse()

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, os.Stdout); err != nil {
		logging.Fatal().Err(err).Msg("farmwatch failed")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func applyFlags(cc config.ClientConfig, f flags) config.ClientConfig {
	if f.url != "" {
		cc.URL = f.url
	}
	if f.page != "" {
		cc.PageURL = f.page
	}
	if f.poll != "" {
		cc.PollURL = f.poll
	}
	if f.token != "" {
		cc.AuthToken = f.token
	}
	return cc
}

func run(ctx context.Context, cfg *config.Config, f flags, out io.Writer) error {
	cc := applyFlags(cfg.Client, f)

	redraw := make(chan struct{}, 1)
	dashOpts := client.DashboardOptions{
		Evaluator:   cfg.Thresholds.Evaluator(),
		ChartWindow: cc.ChartWindow,
		AlertTTL:    cc.AlertTTL,
		MaxAlerts:   cc.MaxAlerts,
		OnChange: func() {
			select {
			case redraw <- struct{}{}:
			default:
			}
		},
	}
	if f.notify {
		dashOpts.Notifier = bellNotifier{w: os.Stderr}
	}
	dash := client.NewDashboard(dashOpts)

	mgr := client.NewManager(client.OptionsFromConfig(&cc), dash)
	logging.Info().
		Str("session_id", mgr.SessionID()).
		Strs("candidates", mgr.Candidates()).
		Msg("Starting farmwatch")
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	r := newRenderer(out, !f.plain)
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			r.Render(dash.View())
		case <-refresh.C:
			r.Render(dash.View())
		case <-ping.C:
			if err := mgr.Ping(); err != nil && !errors.Is(err, client.ErrNotConnected) {
				logging.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}

// bellNotifier rings the terminal bell and prints the alert.
type bellNotifier struct {
	w io.Writer
}

func (b bellNotifier) Notify(a threshold.Alert) error {
	_, err := fmt.Fprintf(b.w, "\aFarm Alert: %s: %s\n", a.Sensor, a.Message)
	return err
}
