// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/bird_logger/internal/config"
	"github.com/relabs-tech/bird_logger/internal/gps"
	"github.com/relabs-tech/bird_logger/internal/session"
)

// RunSatellites is a field diagnostic: it counts satellites on the spatial
// unit's serial port and prints every change, publishing the counts to
// MQTT when a broker is configured. It keeps going after lock.
func RunSatellites(ctx context.Context, cfg *config.Config) error {
	var pub *MQTTPublisher
	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-satellites")
		if err != nil {
			return err
		}
		pub = NewMQTTPublisher(client, cfg.TopicStatus, cfg.TopicSatellites)
		defer pub.Close()
	}

	prober := gps.NewProber(Port(cfg), cfg.SatelliteThreshold)
	prober.OnCount = func(total int, counts gps.Counts) {
		fmt.Printf("[SATS] total=%2d  gps=%2d glonass=%2d galileo=%2d beidou=%2d sbas=%2d\n",
			total, counts[gps.GPS], counts[gps.GLONASS], counts[gps.Galileo], counts[gps.BeiDou], counts[gps.SBAS])
		if pub != nil {
			pub.PublishSatellites(NewSatellites(counts, time.Now()))
		}
	}
	// Past lock the probe only keeps printing.
	prober.Threshold = math.MaxInt

	s := session.New("satellites", time.Second, 0)
	err := prober.Probe(ctx, s)
	if errors.Is(err, context.Canceled) {
		log.Println("satellites: shutting down")
		return nil
	}
	return err
}
