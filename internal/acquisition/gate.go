// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition waits for GNSS satellite lock before a session may
// launch.
package acquisition

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
	"github.com/relabs-tech/bird_logger/internal/session"
)

// Defaults for the lock wait.
const (
	DefaultTimeout = 30 * time.Second
	DefaultPoll    = 100 * time.Millisecond
)

// Outcome is how a lock wait ended.
type Outcome int

const (
	Locked Outcome = iota
	Cancelled
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Locked:
		return "locked"
	case Cancelled:
		return "cancelled"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Prober listens to the spatial device, updating s's satellite count and
// raising s.Lock once enough satellites are seen. It must return when ctx
// is cancelled.
type Prober interface {
	Probe(ctx context.Context, s *session.Session) error
}

// Gate races lock against shutdown and a timeout.
type Gate struct {
	Timeout time.Duration
	Poll    time.Duration
	Clock   clock.Clock
}

// Await runs p and waits for lock. Shutdown wins over lock when both are
// seen at the same poll. The prober is stopped and joined before Await
// returns, whatever the outcome.
func (g *Gate) Await(ctx context.Context, s *session.Session, p Prober) Outcome {
	probeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Probe(probeCtx, s); err != nil && probeCtx.Err() == nil {
			log.Printf("acquisition: prober stopped: %v", err)
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	log.Printf("acquisition: waiting up to %s for satellites", g.Timeout)
	start := g.Clock.Now()
	for {
		switch {
		case s.Shutdown.IsSet() || ctx.Err() != nil:
			log.Println("acquisition: shutdown requested during satellite wait")
			return Cancelled
		case s.Lock.IsSet():
			log.Printf("acquisition: satellite lock acquired (%d satellites)", s.Satellites())
			return Locked
		case g.Clock.Now().Sub(start) >= g.Timeout:
			log.Printf("acquisition: no lock after %s (%d satellites)", g.Timeout, s.Satellites())
			return TimedOut
		}
		g.Clock.Sleep(g.Poll)
	}
}
