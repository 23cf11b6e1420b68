// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order. The first
// file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/farmmonitor/config.yaml",
	"/etc/farmmonitor/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Push: PushConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ShutdownTimeout:   10 * time.Second,
			SensorLogPath:     "logs/sensor_data.log",
			SendBufferSize:    256,
			MaxMessageSize:    512 * 1024,
			PongWait:          60 * time.Second,
			WriteWait:         10 * time.Second,
			MessagesPerSecond: 20,
			MessageBurst:      40,
		},
		Bridge: BridgeConfig{
			Enabled:          true,
			URL:              "http://localhost:8080/broadcast",
			Timeout:          5 * time.Second,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Thresholds: ThresholdsConfig{
			Temperature:  ThresholdRange{Min: 10, Max: 35},
			Humidity:     ThresholdRange{Min: 30, Max: 80},
			SoilMoisture: ThresholdRange{Min: 20, Max: 80},
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:farmmonitor.db?_pragma=busy_timeout(5000)",
			MaxConns:        10,
			ConnectTimeout:  10 * time.Second,
			HistoryMaxHours: 24 * 30,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       30 * time.Second,
		},
		MQTT: MQTTConfig{
			Enabled:        false,
			Broker:         "tcp://localhost:1883",
			ClientID:       "farmpush",
			Topics:         []string{"farm/+/readings"},
			QoS:            0,
			ConnectTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			PageURL:              "http://localhost",
			DefaultPort:          8080,
			Path:                 "/ws",
			PollURL:              "http://localhost:8080/api/v1/realtime/data",
			BaseDelay:            time.Second,
			MaxReconnectAttempts: 5,
			PollInterval:         10 * time.Second,
			SafetyPollInterval:   30 * time.Second,
			ChartWindow:          20,
			AlertTTL:             10 * time.Second,
			MaxAlerts:            50,
			SynthesizeOnFailure:  true,
		},
	}
}

// Load reads configuration with this precedence: environment variables over
// config file over defaults. The result is validated before it is returned.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set through env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"mqtt.topics",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"push_host":                "push.host",
	"push_port":                "push.port",
	"push_sensor_log":          "push.sensor_log_path",
	"push_send_buffer":         "push.send_buffer_size",
	"push_max_message_size":    "push.max_message_size",
	"push_messages_per_second": "push.messages_per_second",
	"push_message_burst":       "push.message_burst",

	"bridge_enabled":           "bridge.enabled",
	"bridge_url":               "bridge.url",
	"bridge_timeout":           "bridge.timeout",
	"bridge_failure_threshold": "bridge.failure_threshold",
	"bridge_open_timeout":      "bridge.open_timeout",

	"threshold_temperature_min":   "thresholds.temperature.min",
	"threshold_temperature_max":   "thresholds.temperature.max",
	"threshold_humidity_min":      "thresholds.humidity.min",
	"threshold_humidity_max":      "thresholds.humidity.max",
	"threshold_soil_moisture_min": "thresholds.soil_moisture.min",
	"threshold_soil_moisture_max": "thresholds.soil_moisture.max",

	"db_driver":      "database.driver",
	"database_url":   "database.dsn",
	"db_max_conns":   "database.max_conns",
	"db_history_max": "database.history_max_hours",

	"cache_backend":  "cache.backend",
	"redis_addr":     "cache.redis_addr",
	"redis_password": "cache.redis_password",
	"redis_db":       "cache.redis_db",
	"cache_ttl":      "cache.ttl",

	"mqtt_enabled":   "mqtt.enabled",
	"mqtt_broker":    "mqtt.broker",
	"mqtt_client_id": "mqtt.client_id",
	"mqtt_username":  "mqtt.username",
	"mqtt_password":  "mqtt.password",
	"mqtt_topics":    "mqtt.topics",
	"mqtt_qos":       "mqtt.qos",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"ws_url":                    "client.url",
	"ws_port":                   "client.port",
	"ws_page_url":               "client.page_url",
	"ws_poll_url":               "client.poll_url",
	"ws_auth_token":             "client.auth_token",
	"ws_max_reconnect_attempts": "client.max_reconnect_attempts",
	"ws_poll_interval":          "client.poll_interval",
	"ws_synthesize_on_failure":  "client.synthesize_on_failure",
}

// envTransformFunc maps PUSH_PORT to push.port, BRIDGE_URL to bridge.url and so on.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
