// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
	"github.com/relabs-tech/bird_logger/internal/session"
)

// blockingProber does nothing until cancelled and records that it was joined.
type blockingProber struct {
	stopped atomic.Bool
}

func (p *blockingProber) Probe(ctx context.Context, _ *session.Session) error {
	<-ctx.Done()
	p.stopped.Store(true)
	return ctx.Err()
}

type event struct {
	at       time.Duration
	sats     int
	shutdown bool
}

// scripted drives satellite counts and shutdown from the fake clock, the
// way the prober and button would while the gate sleeps.
func scripted(t *testing.T, events ...event) (*Gate, *session.Session) {
	t.Helper()
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	s := session.New("t", time.Second, 0)
	clk.OnSleep(func(now time.Time) {
		for _, e := range events {
			if now.Sub(start) < e.at {
				continue
			}
			if e.shutdown {
				s.Shutdown.Set()
			}
			if e.sats > 0 {
				s.SetSatellites(e.sats)
				if e.sats >= 5 {
					s.Lock.Set()
				}
			}
		}
	})
	return &Gate{Timeout: DefaultTimeout, Poll: DefaultPoll, Clock: clk}, s
}

func TestAwait(t *testing.T) {
	tests := []struct {
		name   string
		events []event
		want   Outcome
	}{
		{"lock at 10s", []event{{at: 3 * time.Second, sats: 3}, {at: 10 * time.Second, sats: 5}}, Locked},
		{"lock at 29.9s", []event{{at: 29900 * time.Millisecond, sats: 6}}, Locked},
		{"lock at 30.1s", []event{{at: 30100 * time.Millisecond, sats: 6}}, TimedOut},
		{"never enough satellites", []event{{at: time.Second, sats: 4}}, TimedOut},
		{"shutdown before lock", []event{{at: 5 * time.Second, shutdown: true}, {at: 8 * time.Second, sats: 7}}, Cancelled},
		{"shutdown and lock together", []event{{at: 5 * time.Second, shutdown: true, sats: 7}}, Cancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, s := scripted(t, tt.events...)
			p := &blockingProber{}
			if got := g.Await(context.Background(), s, p); got != tt.want {
				t.Errorf("Await = %v, want %v", got, tt.want)
			}
			if !p.stopped.Load() {
				t.Error("prober not stopped and joined before Await returned")
			}
		})
	}
}

func TestAwaitTimesOutAtBoundary(t *testing.T) {
	g, s := scripted(t)
	start := g.Clock.Now()
	if got := g.Await(context.Background(), s, &blockingProber{}); got != TimedOut {
		t.Fatalf("Await = %v, want timed_out", got)
	}
	if elapsed := g.Clock.Now().Sub(start); elapsed != DefaultTimeout {
		t.Errorf("timed out after %s, want exactly %s", elapsed, DefaultTimeout)
	}
}

type lockingProber struct{}

func (lockingProber) Probe(ctx context.Context, s *session.Session) error {
	s.SetSatellites(9)
	s.Lock.Set()
	<-ctx.Done()
	return nil
}

func TestAwaitRealProberLocks(t *testing.T) {
	g := &Gate{Timeout: time.Second, Poll: time.Millisecond, Clock: clock.System()}
	s := session.New("t", time.Second, 0)
	if got := g.Await(context.Background(), s, lockingProber{}); got != Locked {
		t.Errorf("Await = %v, want locked", got)
	}
	if s.Satellites() != 9 {
		t.Errorf("satellites = %d, want 9", s.Satellites())
	}
}
