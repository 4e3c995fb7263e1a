// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/bird_logger/internal/button"
)

// DefaultGracePeriod is how long workers get to exit after shutdown.
const DefaultGracePeriod = 5 * time.Second

// HoldWatcher reports Shutdown and Reboot gestures.
type HoldWatcher interface {
	WatchHold(ctx context.Context) (button.Gesture, error)
}

// Flasher acknowledges a reboot on the LED.
type Flasher interface {
	Flash(n int)
}

// Rebooter restarts the whole machine.
type Rebooter interface {
	Reboot() error
}

// Supervisor watches the button during a session and stops its workers.
type Supervisor struct {
	Button   HoldWatcher
	LED      Flasher
	Rebooter Rebooter
	Grace    time.Duration
	// KillWait bounds how long Stop waits for a killed worker to return.
	KillWait time.Duration
}

// StopResult describes how a worker ended.
type StopResult struct {
	Kind   string
	ID     uint64
	Killed bool
	Err    error
}

// Watch runs until ctx is cancelled. A Shutdown gesture raises s.Shutdown;
// a Reboot gesture flashes the LED three times and reboots, after which
// Watch only returns on cancellation.
func (sv *Supervisor) Watch(ctx context.Context, s *Session) button.Gesture {
	for {
		g, err := sv.Button.WatchHold(ctx)
		if err != nil {
			return button.None
		}
		switch g {
		case button.Shutdown:
			if s.Shutdown.Set() {
				log.Printf("session: shutdown requested for %s", s.ID)
			}
			return g
		case button.Reboot:
			log.Println("session: reboot requested")
			sv.LED.Flash(3)
			if err := sv.Rebooter.Reboot(); err != nil {
				log.Printf("session: reboot failed: %v", err)
			}
			<-ctx.Done()
			return g
		}
	}
}

// Stop waits up to the grace period for every worker to exit after the
// shutdown signal, then kills the survivors. It is safe to call with
// workers that have already exited.
func (sv *Supervisor) Stop(s *Session, handles []*WorkerHandle) []StopResult {
	s.Shutdown.Set()
	s.SetState(ShuttingDown)

	graceCtx, cancel := context.WithTimeout(context.Background(), sv.Grace)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]StopResult, len(handles))
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *WorkerHandle) {
			defer wg.Done()
			select {
			case <-h.Done():
			case <-graceCtx.Done():
			}
			if h.Kill() {
				log.Printf("session: %s worker #%d still alive after %s, terminating", h.Kind, h.ID, sv.Grace)
				sv.awaitKilled(h)
			}
			results[i] = StopResult{Kind: h.Kind, ID: h.ID, Killed: h.Killed(), Err: h.Err()}
		}(i, h)
	}
	wg.Wait()
	return results
}

func (sv *Supervisor) awaitKilled(h *WorkerHandle) {
	wait := sv.KillWait
	if wait <= 0 {
		wait = time.Second
	}
	select {
	case <-h.Done():
	case <-time.After(wait):
		log.Printf("session: %s worker #%d did not return after termination, abandoning it", h.Kind, h.ID)
	}
}
