// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

// Package mqttingest feeds device telemetry published over MQTT into the
// broadcast server. Devices publish either a bare reading object or a
// sensor_data envelope to a topic such as farm/<device>/readings.
package mqttingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/metrics"
	"github.com/tomtom215/farmmonitor/internal/realtime"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
const disconnectQuiesce = 250

// ErrConnectionLost is returned by Serve when the broker connection drops.
var ErrConnectionLost = errors.New("mqtt connection lost")

// Sink receives decoded sensor values.
type Sink interface {
	Ingest(data map[string]float64, source realtime.Source) realtime.IngestResult
}

// Subscriber is a suture service that owns one MQTT client.
type Subscriber struct {
	cfg  config.MQTTConfig
	sink Sink
	log  zerolog.Logger
}

// New creates a Subscriber.
func New(cfg config.MQTTConfig, sink Sink) *Subscriber {
	if cfg.ClientID == "" {
		cfg.ClientID = "farmpush-" + uuid.NewString()[:8]
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Subscriber{
		cfg:  cfg,
		sink: sink,
		log:  logging.WithComponent("mqtt-ingest"),
	}
}

// Serve connects, subscribes and blocks until ctx is cancelled or the
// connection is lost. Reconnection is left to the supervisor, which restarts
// Serve with backoff.
func (s *Subscriber) Serve(ctx context.Context) error {
	lost := make(chan error, 1)

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetUsername(s.cfg.Username).
		SetPassword(s.cfg.Password).
		SetConnectTimeout(s.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case lost <- err:
			default:
			}
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("connect to %s: timed out after %v", s.cfg.Broker, s.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", s.cfg.Broker, err)
	}
	defer client.Disconnect(disconnectQuiesce)

	filters := make(map[string]byte, len(s.cfg.Topics))
	for _, topic := range s.cfg.Topics {
		filters[topic] = byte(s.cfg.QoS) //nolint:gosec // validated 0..2
	}
	sub := client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		s.HandleMessage(msg.Topic(), msg.Payload())
	})
	if !sub.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("subscribe %v: timed out", s.cfg.Topics)
	}
	if err := sub.Error(); err != nil {
		return fmt.Errorf("subscribe %v: %w", s.cfg.Topics, err)
	}

	s.log.Info().Str("broker", s.cfg.Broker).Strs("topics", s.cfg.Topics).Msg("MQTT ingest subscribed")

	select {
	case <-ctx.Done():
		s.log.Info().Msg("MQTT ingest stopping")
		return ctx.Err()
	case err := <-lost:
		s.log.Warn().Err(err).Msg("MQTT connection lost")
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Subscriber) String() string {
	return "mqtt-ingest"
}

// HandleMessage decodes one publish and passes it to the sink. It reports
// whether the payload was accepted.
func (s *Subscriber) HandleMessage(topic string, payload []byte) bool {
	data, err := realtime.DecodePayload(payload)
	if err != nil {
		metrics.MQTTMessages.WithLabelValues("rejected").Inc()
		s.log.Warn().Str("topic", topic).Int("bytes", len(payload)).Msg("Dropping undecodable MQTT payload")
		return false
	}
	if len(data) == 0 {
		metrics.MQTTMessages.WithLabelValues("empty").Inc()
		return false
	}

	res := s.sink.Ingest(data, realtime.SourceMQTT)
	metrics.MQTTMessages.WithLabelValues("accepted").Inc()
	s.log.Debug().
		Str("topic", topic).
		Str("device_id", DeviceFromTopic(topic)).
		Int("values", len(data)).
		Int("alerts", len(res.Alerts)).
		Int("clients", res.Recipients).
		Msg("MQTT reading broadcast")
	return true
}

// DeviceFromTopic extracts <device> from farm/<device>/readings style topics.
// It returns "" when the topic has fewer than three levels.
func DeviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}
