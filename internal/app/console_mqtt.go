// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/bird_logger/internal/config"
)

// RunStatusConsole subscribes to the logger's status topics and prints
// every message until ctx is cancelled.
func RunStatusConsole(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console: MQTT_BROKER is not configured")
	}
	client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := FormatStatus(msg.Payload())
		if err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	satsToken := client.Subscribe(cfg.TopicSatellites, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := FormatSatellites(msg.Payload())
		if err != nil {
			log.Printf("console: satellites unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	satsToken.Wait()
	if satsToken.Error() != nil {
		return satsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSatellites)

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// FormatStatus renders a status payload as one console line.
func FormatStatus(payload []byte) (string, error) {
	var st Status
	if err := json.Unmarshal(payload, &st); err != nil {
		return "", err
	}
	session := st.Session
	if session == "" {
		session = "-"
	}
	return fmt.Sprintf("[STAT] %s  session=%s  state=%-14s led=%-10s sats=%d",
		st.Time.Format("15:04:05"), session, st.State, st.Pattern, st.Satellites), nil
}

// FormatSatellites renders a satellites payload as one console line.
func FormatSatellites(payload []byte) (string, error) {
	var s Satellites
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", err
	}
	return fmt.Sprintf("[SATS] %s  total=%2d  gps=%2d glonass=%2d galileo=%2d beidou=%2d sbas=%2d",
		s.Time.Format("15:04:05"), s.Total, s.GPS, s.GLONASS, s.Galileo, s.BeiDou, s.SBAS), nil
}
