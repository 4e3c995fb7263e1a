// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishWait bounds how long a publish may hold up its caller.
const publishWait = 500 * time.Millisecond

// MQTTPublisher publishes retained status and satellite messages.
type MQTTPublisher struct {
	client          mqtt.Client
	topicStatus     string
	topicSatellites string
}

// ConnectMQTT connects to broker. The client reconnects on its own after
// the first successful connection.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: connected to broker at %s", broker)
	return client, nil
}

// NewMQTTPublisher publishes on client to the given topics.
func NewMQTTPublisher(client mqtt.Client, topicStatus, topicSatellites string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topicStatus: topicStatus, topicSatellites: topicSatellites}
}

func (p *MQTTPublisher) PublishStatus(st Status) {
	p.publish(p.topicStatus, st)
}

func (p *MQTTPublisher) PublishSatellites(sat Satellites) {
	p.publish(p.topicSatellites, sat)
}

func (p *MQTTPublisher) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("mqtt: marshal for %s: %v", topic, err)
		return
	}
	token := p.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishWait) {
		log.Printf("mqtt: publish to %s still pending after %s", topic, publishWait)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish to %s: %v", topic, err)
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
