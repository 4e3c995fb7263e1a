// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package button turns a single push button into Start, Shutdown and Reboot
// gestures by measuring how long it is held.
package button

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
)

// Gesture is a classified button interaction.
type Gesture int

const (
	None Gesture = iota
	Start
	Shutdown
	Reboot
)

func (g Gesture) String() string {
	switch g {
	case Start:
		return "start"
	case Shutdown:
		return "shutdown"
	case Reboot:
		return "reboot"
	}
	return "none"
}

// Thresholds are the hold durations separating gestures.
type Thresholds struct {
	StartMax time.Duration // idle: hold < StartMax is Start
	Shutdown time.Duration // active: Shutdown <= hold < Reboot is Shutdown
	Reboot   time.Duration // active: hold >= Reboot is Reboot
}

// DefaultThresholds are the field defaults.
var DefaultThresholds = Thresholds{
	StartMax: 1500 * time.Millisecond,
	Shutdown: 3 * time.Second,
	Reboot:   10 * time.Second,
}

// Classify maps a hold duration to a gesture. active tells whether a session
// is running; Start is only recognised when it is not, Shutdown and Reboot
// only when it is.
func (t Thresholds) Classify(held time.Duration, active bool) Gesture {
	if !active {
		if held < t.StartMax {
			return Start
		}
		return None
	}
	switch {
	case held >= t.Reboot:
		return Reboot
	case held >= t.Shutdown:
		return Shutdown
	}
	return None
}

// Line is a digital input that reports whether the button is pressed.
type Line interface {
	Pressed() bool
}

// Classifier polls a Line and reports gestures.
type Classifier struct {
	Line       Line
	Thresholds Thresholds
	Clock      clock.Clock

	// HoldPoll is the sampling period while the button is held,
	// IdlePoll the period while waiting for a press.
	HoldPoll time.Duration
	IdlePoll time.Duration
}

// NewClassifier returns a Classifier with the field default timings.
func NewClassifier(line Line) *Classifier {
	return &Classifier{
		Line:       line,
		Thresholds: DefaultThresholds,
		Clock:      clock.System(),
		HoldPoll:   10 * time.Millisecond,
		IdlePoll:   100 * time.Millisecond,
	}
}

// WaitRelease blocks until the button is released.
func (c *Classifier) WaitRelease(ctx context.Context) error {
	for c.Line.Pressed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Clock.Sleep(c.IdlePoll)
	}
	return ctx.Err()
}

// WaitStart blocks until a Start gesture. The button has to be seen released
// first, so a hold left over from the previous session cannot trigger it.
func (c *Classifier) WaitStart(ctx context.Context) error {
	if err := c.WaitRelease(ctx); err != nil {
		return err
	}
	log.Println("button: waiting for press to start logging")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Line.Pressed() {
			held := c.measureHold(ctx, 0)
			if c.Thresholds.Classify(held, false) == Start {
				log.Printf("button: short press (%s), starting", held.Round(time.Millisecond))
				return nil
			}
			log.Printf("button: press of %s ignored while idle", held.Round(time.Millisecond))
		}
		c.Clock.Sleep(c.IdlePoll)
	}
}

// WatchHold blocks until a Shutdown or Reboot gesture while a session is
// active. Reboot fires as soon as the hold reaches its threshold, Shutdown
// on release. It returns None with ctx's error when cancelled.
func (c *Classifier) WatchHold(ctx context.Context) (Gesture, error) {
	log.Printf("button: monitoring shutdown button (hold %s)", c.Thresholds.Shutdown)
	for {
		if err := ctx.Err(); err != nil {
			return None, err
		}
		if c.Line.Pressed() {
			held := c.measureHold(ctx, c.Thresholds.Reboot)
			if err := ctx.Err(); err != nil {
				return None, err
			}
			switch g := c.Thresholds.Classify(held, true); g {
			case Reboot, Shutdown:
				log.Printf("button: %s gesture after %s hold", g, held.Round(time.Millisecond))
				return g, nil
			}
		}
		c.Clock.Sleep(c.IdlePoll)
	}
}

// measureHold samples the line until release and returns the hold length.
// With limit > 0 it returns as soon as the hold reaches limit.
func (c *Classifier) measureHold(ctx context.Context, limit time.Duration) time.Duration {
	start := c.Clock.Now()
	for c.Line.Pressed() {
		held := c.Clock.Now().Sub(start)
		if limit > 0 && held >= limit {
			return held
		}
		if ctx.Err() != nil {
			return held
		}
		c.Clock.Sleep(c.HoldPoll)
	}
	return c.Clock.Now().Sub(start)
}
