// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

//go:build integration

package mqttingest

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/testinfra"
)

func TestSubscriber_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker, err := testinfra.NewMosquittoContainer(ctx)
	if err != nil {
		t.Fatalf("start mosquitto: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, broker)

	sink := &recordingSink{}
	sub := New(config.MQTTConfig{
		Broker:         broker.BrokerURL,
		Topics:         []string{"farm/+/readings"},
		QoS:            1,
		ConnectTimeout: 10 * time.Second,
	}, sink)

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- sub.Serve(serveCtx) }()

	pub := mqtt.NewClient(mqtt.NewClientOptions().AddBroker(broker.BrokerURL).SetClientID("test-publisher"))
	if tok := pub.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("publisher connect: %v", tok.Error())
	}
	defer pub.Disconnect(100)

	deadline := time.Now().Add(15 * time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		tok := pub.Publish("farm/gh-1/readings", 1, false, `{"device_id":"gh-1","temperature":37}`)
		tok.Wait()
		time.Sleep(200 * time.Millisecond)
	}
	if sink.count() == 0 {
		t.Fatal("subscriber never received a reading")
	}

	stop()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
