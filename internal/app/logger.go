// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/bird_logger/internal/acquisition"
	"github.com/relabs-tech/bird_logger/internal/button"
	"github.com/relabs-tech/bird_logger/internal/clock"
	"github.com/relabs-tech/bird_logger/internal/journal"
	"github.com/relabs-tech/bird_logger/internal/led"
	"github.com/relabs-tech/bird_logger/internal/preflight"
	"github.com/relabs-tech/bird_logger/internal/session"
)

// ErrRebooting ends Run after a reboot gesture.
var ErrRebooting = errors.New("logger: reboot requested")

// Logger is the session loop: it waits for a start press, checks storage,
// waits for satellite lock, runs the sensor workers and stops them again,
// forever.
type Logger struct {
	Button     *button.Classifier
	LED        *led.Annunciator
	Preflight  *preflight.Gate
	Acquire    *acquisition.Gate
	Prober     acquisition.Prober
	Launcher   *session.Launcher
	Supervisor *session.Supervisor
	Rebooter   session.Rebooter
	// Workers builds a fresh worker set writing under root.
	Workers func(root string) []session.Worker
	// Journal is optional.
	Journal *journal.Journal
	Status  StatusSink
	Clock   clock.Clock

	Interval    time.Duration
	MaxDuration time.Duration
	Cooldown    time.Duration

	mu      sync.Mutex
	current *session.Session
	halt    context.CancelCauseFunc
}

// Run loops over sessions until ctx is cancelled, a reboot is requested, or
// a strict preflight failure has been annunciated and ctx is cancelled.
func (l *Logger) Run(ctx context.Context) error {
	ctx, halt := context.WithCancelCause(ctx)
	defer halt(nil)
	l.mu.Lock()
	l.halt = halt
	l.mu.Unlock()

	for {
		if err := l.runOnce(ctx); err != nil {
			if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrRebooting) {
				return ErrRebooting
			}
			return err
		}
	}
}

func (l *Logger) runOnce(ctx context.Context) error {
	l.setCurrent(nil)
	l.show(led.SlowBlink)
	if err := l.Button.WaitStart(ctx); err != nil {
		return err
	}

	now := l.Clock.Now()
	s := session.New(session.NewID(now), l.Interval, l.MaxDuration)
	l.setCurrent(s)
	l.journal("begin", func(j *journal.Journal) error { return j.Begin(s.ID, now) })
	log.Printf("logger: session %s requested", s.ID)

	s.SetState(session.Preflight)
	l.report()
	res, err := l.Preflight.Check()
	if err != nil {
		l.finish(s, journal.PreflightFailed, nil)
		l.show(led.Breathe)
		log.Printf("logger: %v, halting until restart", err)
		<-ctx.Done()
		return err
	}

	s.SetState(session.SearchingLock)
	l.show(led.FastBlink)

	watchCtx, stopWatch := context.WithCancel(ctx)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		l.Supervisor.Watch(watchCtx, s)
	}()
	endWatch := func() {
		stopWatch()
		<-watched
	}

	outcome := l.Acquire.Await(ctx, s, l.Prober)
	l.report()
	if outcome != acquisition.Locked {
		endWatch()
		if ctx.Err() != nil {
			l.finish(s, journal.Cancelled, nil)
			return ctx.Err()
		}
		if outcome == acquisition.TimedOut {
			log.Printf("logger: no satellite lock after %s, restarting", l.Acquire.Timeout)
			l.finish(s, journal.LockTimeout, nil)
		} else {
			log.Println("logger: shutdown during satellite wait, restarting")
			l.finish(s, journal.Cancelled, nil)
		}
		l.show(led.Off)
		return l.cooldown(ctx)
	}

	l.show(led.Solid)
	handles, err := l.Launcher.Launch(ctx, s, l.Workers(res.Root))
	if err != nil {
		endWatch()
		log.Printf("logger: launch failed: %v", err)
		l.finish(s, journal.Cancelled, nil)
		l.show(led.Off)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return l.cooldown(ctx)
	}
	epoch, _ := s.Epoch()
	l.report()
	l.journal("launch", func(j *journal.Journal) error {
		return j.Launched(s.ID, epoch, s.Satellites(), res.Root)
	})

	allExited := make(chan struct{})
	go func() {
		for _, h := range handles {
			<-h.Done()
		}
		close(allExited)
	}()

	select {
	case <-s.Shutdown.Done():
	case <-allExited:
		log.Println("logger: all workers have exited, ending session")
	case <-ctx.Done():
	}
	endWatch()

	log.Println("logger: terminating workers")
	results := l.Supervisor.Stop(s, handles)
	l.report()

	exits := make([]journal.WorkerExit, 0, len(results))
	for _, r := range results {
		exits = append(exits, journal.WorkerExit{Kind: r.Kind, WorkerID: r.ID, Killed: r.Killed, Err: r.Err})
	}
	ended := l.Clock.Now()
	if ctx.Err() != nil {
		l.finish(s, journal.Cancelled, exits)
		l.show(led.Off)
		return ctx.Err()
	}
	l.finish(s, journal.Completed, exits)
	log.Printf("logger: session %s logged for %s", s.ID, ended.Sub(epoch).Round(time.Second))

	l.show(led.Off)
	return l.cooldown(ctx)
}

// cooldown waits for the button to be released, then pauses before the
// next session can start.
func (l *Logger) cooldown(ctx context.Context) error {
	log.Println("logger: cooling down before next session")
	if err := l.Button.WaitRelease(ctx); err != nil {
		return err
	}
	l.Clock.Sleep(l.Cooldown)
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Println("logger: ready for next session")
	return nil
}

// Reboot records the reboot and hands over to the real Rebooter. The loop
// ends once the command has been issued.
func (l *Logger) Reboot() error {
	// The supervisor has just flashed the LED, leaving it off.
	l.report()

	l.mu.Lock()
	s, halt := l.current, l.halt
	l.mu.Unlock()

	if s != nil {
		l.finish(s, journal.Reboot, nil)
	}
	err := l.Rebooter.Reboot()
	if halt != nil {
		halt(ErrRebooting)
	}
	return err
}

func (l *Logger) setCurrent(s *session.Session) {
	l.mu.Lock()
	l.current = s
	l.mu.Unlock()
}

func (l *Logger) show(p led.Pattern) {
	l.LED.Set(p)
	l.report()
}

// report publishes the current status.
func (l *Logger) report() {
	if l.Status == nil {
		return
	}
	l.mu.Lock()
	s := l.current
	l.mu.Unlock()

	st := Status{
		State:   session.Idle.String(),
		Pattern: l.LED.Current().String(),
		Time:    l.Clock.Now(),
	}
	if s != nil {
		st.Session = s.ID
		st.State = s.State().String()
		st.Satellites = s.Satellites()
	}
	l.Status.PublishStatus(st)
}

// finish records the attempt's outcome once; later calls are ignored by
// the journal's outcome guard.
func (l *Logger) finish(s *session.Session, outcome journal.Outcome, exits []journal.WorkerExit) {
	log.Printf("logger: session %s ended: %s", s.ID, outcome)
	l.journal("finish", func(j *journal.Journal) error {
		return j.Finish(s.ID, outcome, l.Clock.Now(), exits)
	})
}

func (l *Logger) journal(op string, fn func(*journal.Journal) error) {
	if l.Journal == nil {
		return
	}
	if err := fn(l.Journal); err != nil {
		log.Printf("logger: journal %s: %v", op, err)
	}
}
