// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/bird_logger/internal/acquisition"
	"github.com/relabs-tech/bird_logger/internal/button"
	"github.com/relabs-tech/bird_logger/internal/clock"
	"github.com/relabs-tech/bird_logger/internal/config"
	"github.com/relabs-tech/bird_logger/internal/gps"
	"github.com/relabs-tech/bird_logger/internal/journal"
	"github.com/relabs-tech/bird_logger/internal/led"
	"github.com/relabs-tech/bird_logger/internal/preflight"
	"github.com/relabs-tech/bird_logger/internal/sensors"
	"github.com/relabs-tech/bird_logger/internal/session"
	"github.com/relabs-tech/bird_logger/internal/worker"
)

// Thresholds returns the button thresholds from cfg.
func Thresholds(cfg *config.Config) button.Thresholds {
	return button.Thresholds{
		StartMax: cfg.StartMaxHold(),
		Shutdown: cfg.ShutdownHold(),
		Reboot:   cfg.RebootHold(),
	}
}

// Port returns the spatial unit's serial port from cfg.
func Port(cfg *config.Config) gps.Port {
	return gps.Port{Name: cfg.SerialPort, BaudRate: cfg.SerialBaudRate}
}

// Workers returns the camera, ADC and spatial worker factory.
func Workers(cfg *config.Config) func(root string) []session.Worker {
	cam := sensors.Camera{Command: cfg.CameraCommand, Quality: cfg.CameraQuality}
	openADC := worker.OpenADS1115(cfg.ADCI2CBus, cfg.ADCI2CAddr, cfg.ADCChannels, cfg.ADCFullScale)
	port := Port(cfg)

	return func(root string) []session.Worker {
		return []session.Worker{
			worker.NewCamera(root, cam),
			worker.NewADC(root, openADC),
			worker.NewSpatial(root, port.Open),
		}
	}
}

// Build assembles a Logger on the GPIO pins and devices named in cfg.
func Build(cfg *config.Config, status StatusSink, j *journal.Journal) (*Logger, error) {
	line, err := button.OpenGPIO(cfg.ButtonPin)
	if err != nil {
		return nil, err
	}
	ledDev, err := led.OpenGPIO(cfg.LEDPin)
	if err != nil {
		return nil, err
	}

	sys := clock.System()
	cls := &button.Classifier{
		Line:       line,
		Thresholds: Thresholds(cfg),
		Clock:      sys,
		HoldPoll:   cfg.ButtonPoll(),
		IdlePoll:   cfg.IdlePoll(),
	}
	ann := led.New(ledDev)
	prober := gps.NewProber(Port(cfg), cfg.SatelliteThreshold)

	l := &Logger{
		Button: cls,
		LED:    ann,
		Preflight: &preflight.Gate{
			StoragePath:  cfg.StoragePath,
			FallbackPath: cfg.FallbackPath,
			SerialPath:   cfg.SerialPort,
			Strict:       cfg.StorageRequired,
			System:       preflight.Host(),
		},
		Acquire:     &acquisition.Gate{Timeout: cfg.LockTimeout(), Poll: cfg.LockPoll(), Clock: sys},
		Prober:      prober,
		Launcher:    &session.Launcher{Settle: cfg.SettleDelay(), Clock: sys},
		Rebooter:    CommandRebooter{Command: cfg.RebootCommand},
		Workers:     Workers(cfg),
		Journal:     j,
		Status:      status,
		Clock:       sys,
		Interval:    cfg.SampleInterval(),
		MaxDuration: cfg.MaxDuration(),
		Cooldown:    cfg.Cooldown(),
	}
	l.Supervisor = &session.Supervisor{Button: cls, LED: ann, Rebooter: l, Grace: cfg.GracePeriod()}
	prober.OnCount = func(_ int, counts gps.Counts) {
		if status != nil {
			status.PublishSatellites(NewSatellites(counts, time.Now()))
		}
		l.report()
	}
	return l, nil
}

// RunLogger runs the logger daemon with the optional journal, MQTT, OLED and
// web outputs cfg enables.
func RunLogger(ctx context.Context, cfg *config.Config) error {
	var out sinks

	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			// Status is nice to have in the field; logging is not.
			log.Printf("logger: %v, continuing without MQTT", err)
		} else {
			pub := NewMQTTPublisher(client, cfg.TopicStatus, cfg.TopicSatellites)
			defer pub.Close()
			out = append(out, pub)
		}
	}

	if cfg.DisplayI2CAddr != 0 {
		d, err := OpenDisplay(cfg.DisplayI2CBus)
		if err != nil {
			log.Printf("logger: %v, continuing without display", err)
		} else {
			defer d.Close()
			out = append(out, d)
		}
	}

	if cfg.StatusWebPort > 0 {
		board := NewStatusBoard()
		out = append(out, board)
		go func() {
			if err := RunStatusWeb(ctx, cfg.StatusWebPort, board); err != nil {
				log.Printf("logger: %v", err)
			}
		}()
	}

	var j *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer j.Close()
	}

	l, err := Build(cfg, out, j)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer l.LED.Close()

	log.Printf("logger: ready (interval %s, storage %s)", cfg.SampleInterval(), cfg.StoragePath)
	return l.Run(ctx)
}
