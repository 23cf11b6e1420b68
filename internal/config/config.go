// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package config loads Farm Monitor configuration for all three binaries.
//
// Values are layered with koanf: built-in defaults, then an optional YAML file,
// then environment variables. Each binary reads the sections it needs:
// farmpush uses Push, Bridge (receiver side), MQTT and Thresholds; farmweb uses
// Server, Database, Cache, Bridge and Security; farmwatch uses Client.
package config

import (
	"time"

	"github.com/tomtom215/farmmonitor/internal/threshold"
)

// Config holds the complete application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Push       PushConfig       `koanf:"push"`
	Bridge     BridgeConfig     `koanf:"bridge"`
	Thresholds ThresholdsConfig `koanf:"thresholds"`
	Database   DatabaseConfig   `koanf:"database"`
	Cache      CacheConfig      `koanf:"cache"`
	MQTT       MQTTConfig       `koanf:"mqtt"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Client     ClientConfig     `koanf:"client"`
}

// ServerConfig configures the farmweb HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// PushConfig configures the farmpush broadcast server.
type PushConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// SensorLogPath receives one JSON line per accepted reading. Empty disables it.
	SensorLogPath string `koanf:"sensor_log_path"`

	SendBufferSize    int           `koanf:"send_buffer_size"`
	MaxMessageSize    int64         `koanf:"max_message_size"`
	PongWait          time.Duration `koanf:"pong_wait"`
	WriteWait         time.Duration `koanf:"write_wait"`
	MessagesPerSecond float64       `koanf:"messages_per_second"`
	MessageBurst      int           `koanf:"message_burst"`
}

// BridgeConfig configures forwarding from the web tier to the push tier.
type BridgeConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`

	// FailureThreshold consecutive failures open the circuit breaker for OpenTimeout.
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

// ThresholdRange is an inclusive normal band for one sensor type.
type ThresholdRange struct {
	Min float64 `koanf:"min"`
	Max float64 `koanf:"max"`
}

// ThresholdsConfig holds the configured normal bands. Sensor types without an
// entry always classify as normal.
type ThresholdsConfig struct {
	Temperature  ThresholdRange `koanf:"temperature"`
	Humidity     ThresholdRange `koanf:"humidity"`
	SoilMoisture ThresholdRange `koanf:"soil_moisture"`
}

// Ranges returns the thresholds keyed by sensor type.
func (t ThresholdsConfig) Ranges() map[string]ThresholdRange {
	return map[string]ThresholdRange{
		"temperature":   t.Temperature,
		"humidity":      t.Humidity,
		"soil_moisture": t.SoilMoisture,
	}
}

// Evaluator builds a threshold evaluator over the configured bands.
func (t ThresholdsConfig) Evaluator() *threshold.Evaluator {
	ranges := make(map[string]threshold.Range, 3)
	for sensor, r := range t.Ranges() {
		ranges[sensor] = threshold.Range{Min: r.Min, Max: r.Max}
	}
	return threshold.New(ranges)
}

// DatabaseConfig selects and configures the reading store.
type DatabaseConfig struct {
	// Driver is "sqlite" (embedded, default) or "postgres".
	Driver          string        `koanf:"driver"`
	DSN             string        `koanf:"dsn"`
	MaxConns        int32         `koanf:"max_conns"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	HistoryMaxHours int           `koanf:"history_max_hours"`
}

// CacheConfig configures the latest-snapshot cache used by farmweb.
type CacheConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend       string        `koanf:"backend"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

// MQTTConfig configures the optional device telemetry subscriber in farmpush.
type MQTTConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Broker         string        `koanf:"broker"`
	ClientID       string        `koanf:"client_id"`
	Username       string        `koanf:"username"`
	Password       string        `koanf:"password"`
	Topics         []string      `koanf:"topics"`
	QoS            int           `koanf:"qos"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SecurityConfig holds authentication, CORS and rate limit settings.
type SecurityConfig struct {
	// AuthMode is "none" or "jwt". With "jwt", farmweb read endpoints need a bearer token.
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config for the koanf layer.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ClientConfig configures the farmwatch connection manager.
type ClientConfig struct {
	// URL overrides candidate discovery entirely when set.
	URL string `koanf:"url"`
	// Port is combined with the page host when URL is empty.
	Port int `koanf:"port"`
	// PageURL stands in for the hosting page origin of a browser client.
	PageURL     string `koanf:"page_url"`
	DefaultPort int    `koanf:"default_port"`
	Path        string `koanf:"path"`

	// PollURL is the snapshot endpoint used by the polling fallback.
	PollURL   string `koanf:"poll_url"`
	AuthToken string `koanf:"auth_token"`

	BaseDelay            time.Duration `koanf:"base_delay"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts"`
	PollInterval         time.Duration `koanf:"poll_interval"`
	SafetyPollInterval   time.Duration `koanf:"safety_poll_interval"`
	ChartWindow          int           `koanf:"chart_window"`
	AlertTTL             time.Duration `koanf:"alert_ttl"`
	MaxAlerts            int           `koanf:"max_alerts"`
	SynthesizeOnFailure  bool          `koanf:"synthesize_on_failure"`
}
