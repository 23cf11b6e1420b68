// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/farmmonitor/internal/api"
	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/mqttingest"
	"github.com/tomtom215/farmmonitor/internal/realtime"
	"github.com/tomtom215/farmmonitor/internal/supervisor"
	"github.com/tomtom215/farmmonitor/internal/supervisor/services"
	"github.com/tomtom215/farmmonitor/internal/sysinfo"
	"github.com/tomtom215/farmmonitor/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Starting farmpush")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("farmpush stopped with error")
	}
	logging.Info().Msg("farmpush stopped gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(cfg *config.Config) error {
	var sensorLog *logging.SensorLog
	if cfg.Push.SensorLogPath != "" {
		sl, err := logging.OpenSensorLog(cfg.Push.SensorLogPath)
		if err != nil {
			return fmt.Errorf("open sensor log: %w", err)
		}
		defer func() {
			if err := sl.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing sensor log")
			}
		}()
		sensorLog = sl
		logging.Info().Str("path", cfg.Push.SensorLogPath).Msg("Sensor log enabled")
	}

	hub := websocket.NewHub()
	server := realtime.NewServer(hub, realtime.Options{
		Evaluator: cfg.Thresholds.Evaluator(),
		SensorLog: sensorLog,
	})

	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	health := api.NewHealthReporter(version, sysinfo.NewCollector("."))
	handler := api.NewPushHandler(server, api.PushHandlerOptions{
		ClientOptions: clientOptions(cfg.Push),
		AllowOrigin:   mw.AllowsOrigin,
		Health:        health,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Push.Host, cfg.Push.Port),
		Handler:           api.NewPushRouter(handler, mw),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		Name:            "farmpush",
		ShutdownTimeout: cfg.Push.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	if cfg.MQTT.Enabled {
		tree.AddIngestService(mqttingest.New(cfg.MQTT, server))
		logging.Info().Str("broker", cfg.MQTT.Broker).Strs("topics", cfg.MQTT.Topics).Msg("MQTT ingest added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Push.ShutdownTimeout))
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tree.Run(ctx)
}

func clientOptions(p config.PushConfig) websocket.ClientOptions {
	opts := websocket.DefaultClientOptions()
	if p.SendBufferSize > 0 {
		opts.SendBuffer = p.SendBufferSize
	}
	if p.MaxMessageSize > 0 {
		opts.MaxMessageSize = p.MaxMessageSize
	}
	if p.PongWait > 0 {
		opts.PongWait = p.PongWait
	}
	if p.WriteWait > 0 {
		opts.WriteWait = p.WriteWait
	}
	if p.MessagesPerSecond > 0 {
		opts.MessagesPerSecond = p.MessagesPerSecond
	}
	if p.MessageBurst > 0 {
		opts.Burst = p.MessageBurst
	}
	return opts
}
