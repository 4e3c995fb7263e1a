// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package button

import (
	"context"
	"testing"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
)

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		held   float64
		idle   Gesture
		active Gesture
	}{
		{0.5, Start, None},
		{1.4, Start, None},
		{1.6, None, None},
		{2.9, None, None},
		{3.0, None, Shutdown},
		{9.9, None, Shutdown},
		{10.0, None, Reboot},
		{15.0, None, Reboot},
	}

	th := DefaultThresholds
	for _, tt := range tests {
		if got := th.Classify(secs(tt.held), false); got != tt.idle {
			t.Errorf("Classify(%.1fs, idle) = %v, want %v", tt.held, got, tt.idle)
		}
		if got := th.Classify(secs(tt.held), true); got != tt.active {
			t.Errorf("Classify(%.1fs, active) = %v, want %v", tt.held, got, tt.active)
		}
	}
}

func TestClassifyExactStartThreshold(t *testing.T) {
	if got := DefaultThresholds.Classify(1500*time.Millisecond, false); got != None {
		t.Errorf("Classify(1.5s, idle) = %v, want none", got)
	}
}

// scriptedLine is pressed during the given spans of fake time.
type scriptedLine struct {
	clk   *clock.Fake
	start time.Time
	spans [][2]float64
}

func (l *scriptedLine) Pressed() bool {
	at := l.clk.Now().Sub(l.start)
	for _, s := range l.spans {
		if at >= secs(s[0]) && at < secs(s[1]) {
			return true
		}
	}
	return false
}

func newScripted(spans ...[2]float64) (*Classifier, *clock.Fake, time.Time) {
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	c := NewClassifier(&scriptedLine{clk: clk, start: start, spans: spans})
	c.Clock = clk
	return c, clk, start
}

func TestWaitStart(t *testing.T) {
	tests := []struct {
		name    string
		spans   [][2]float64
		minimum float64
	}{
		{"short press", [][2]float64{{1, 1.8}}, 1.8},
		{"long press ignored", [][2]float64{{1, 3}, {5, 5.5}}, 5.5},
		{"held at entry must be released", [][2]float64{{0, 1}, {2, 2.3}}, 2.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk, start := newScripted(tt.spans...)
			if err := c.WaitStart(context.Background()); err != nil {
				t.Fatalf("WaitStart: %v", err)
			}
			if at := clk.Now().Sub(start); at < secs(tt.minimum) || at > secs(tt.minimum+0.5) {
				t.Errorf("WaitStart returned at %s, want just after %.1fs", at, tt.minimum)
			}
		})
	}
}

func TestWatchHold(t *testing.T) {
	tests := []struct {
		name  string
		spans [][2]float64
		want  Gesture
		at    float64
	}{
		{"shutdown on release", [][2]float64{{1, 5}}, Shutdown, 5},
		{"short hold ignored", [][2]float64{{1, 2}, {3, 7}}, Shutdown, 7},
		{"reboot while held", [][2]float64{{1, 30}}, Reboot, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk, start := newScripted(tt.spans...)
			g, err := c.WatchHold(context.Background())
			if err != nil {
				t.Fatalf("WatchHold: %v", err)
			}
			if g != tt.want {
				t.Errorf("WatchHold = %v, want %v", g, tt.want)
			}
			at := clk.Now().Sub(start)
			if at < secs(tt.at) || at > secs(tt.at)+50*time.Millisecond {
				t.Errorf("gesture at %s, want %.1fs", at, tt.at)
			}
		})
	}
}

func TestWatchHoldCancelled(t *testing.T) {
	c, _, _ := newScripted()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, err := c.WatchHold(ctx)
	if err == nil || g != None {
		t.Errorf("WatchHold on cancelled ctx = %v, %v", g, err)
	}
}
