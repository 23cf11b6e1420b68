// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// minJWTSecretLength is the shortest accepted HMAC secret when auth is enabled.
const minJWTSecretLength = 32

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validatePush,
		c.validateBridge,
		c.validateThresholds,
		c.validateDatabase,
		c.validateCache,
		c.validateMQTT,
		c.validateSecurity,
		c.validateLogging,
		c.validateClient,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

func (c *Config) validateServer() error {
	if !validPort(c.Server.Port) {
		return invalid("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return invalid("server read/write timeouts must be positive")
	}
	return nil
}

func (c *Config) validatePush() error {
	if !validPort(c.Push.Port) {
		return invalid("PUSH_PORT must be between 1 and 65535, got %d", c.Push.Port)
	}
	if c.Push.SendBufferSize < 1 {
		return invalid("PUSH_SEND_BUFFER must be at least 1, got %d", c.Push.SendBufferSize)
	}
	if c.Push.MaxMessageSize < 1024 {
		return invalid("PUSH_MAX_MESSAGE_SIZE must be at least 1024 bytes, got %d", c.Push.MaxMessageSize)
	}
	if c.Push.PongWait <= 0 || c.Push.WriteWait <= 0 {
		return invalid("push pong_wait and write_wait must be positive")
	}
	if c.Push.MessagesPerSecond <= 0 || c.Push.MessageBurst < 1 {
		return invalid("push message rate limit must be positive")
	}
	return nil
}

func (c *Config) validateBridge() error {
	if !c.Bridge.Enabled {
		return nil
	}
	u, err := url.Parse(c.Bridge.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("BRIDGE_URL must be an absolute http(s) URL, got %q", c.Bridge.URL)
	}
	if c.Bridge.Timeout <= 0 {
		return invalid("BRIDGE_TIMEOUT must be positive")
	}
	if c.Bridge.FailureThreshold == 0 {
		return invalid("BRIDGE_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	for sensor, r := range c.Thresholds.Ranges() {
		if r.Min >= r.Max {
			return invalid("threshold for %s: min (%v) must be below max (%v)", sensor, r.Min, r.Max)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return invalid("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return invalid("DATABASE_URL is required")
	}
	if c.Database.HistoryMaxHours < 1 {
		return invalid("DB_HISTORY_MAX must be at least 1 hour")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return invalid("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return invalid("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return invalid("CACHE_TTL must be positive")
	}
	return nil
}

func (c *Config) validateMQTT() error {
	if !c.MQTT.Enabled {
		return nil
	}
	if c.MQTT.Broker == "" {
		return invalid("MQTT_BROKER is required when MQTT_ENABLED=true")
	}
	if len(c.MQTT.Topics) == 0 {
		return invalid("MQTT_TOPICS must name at least one topic")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return invalid("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return invalid("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
	default:
		return invalid("AUTH_MODE must be none or jwt, got %q", c.Security.AuthMode)
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitReqs < 1 || c.Security.RateLimitWindow <= 0) {
		return invalid("rate limit requests and window must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return invalid("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return invalid("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateClient() error {
	cl := c.Client
	if cl.Port != 0 && !validPort(cl.Port) {
		return invalid("WS_PORT must be between 1 and 65535, got %d", cl.Port)
	}
	if !validPort(cl.DefaultPort) {
		return invalid("client default_port must be between 1 and 65535, got %d", cl.DefaultPort)
	}
	if cl.BaseDelay <= 0 || cl.PollInterval <= 0 || cl.SafetyPollInterval <= 0 || cl.AlertTTL <= 0 {
		return invalid("client delays and intervals must be positive")
	}
	if cl.MaxReconnectAttempts < 0 {
		return invalid("WS_MAX_RECONNECT_ATTEMPTS must not be negative")
	}
	if cl.ChartWindow < 1 || cl.MaxAlerts < 1 {
		return invalid("client chart_window and max_alerts must be at least 1")
	}
	return nil
}
