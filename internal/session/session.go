// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session holds the state shared between the controller and the
// sensor workers for one logging run, and the launcher and supervisor that
// start and stop those workers.
//
// Ownership of the shared fields:
//
//	Start, epoch     written once by the Launcher (epoch strictly first)
//	Shutdown         raised by the Supervisor or the Session Loop
//	Lock, satellites written by the satellite prober
//	interval, maxDur written by the Session Loop before launch
//	state            written in turn by the Session Loop, Launcher and Supervisor
//
// Everything else only reads.
package session

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrEpochAlreadySet is returned when a session is started twice.
var ErrEpochAlreadySet = errors.New("session: start epoch already set")

// State is the phase of a session.
type State int32

const (
	Idle State = iota
	Preflight
	SearchingLock
	Logging
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preflight:
		return "preflight"
	case SearchingLock:
		return "searching_lock"
	case Logging:
		return "logging"
	case ShuttingDown:
		return "shutting_down"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Session is one logging run.
type Session struct {
	ID string

	Start    *OneShot
	Shutdown *OneShot
	Lock     *OneShot

	epochNanos atomic.Int64
	epochSet   atomic.Bool

	interval   atomic.Int64
	maxDur     atomic.Int64
	satellites atomic.Int32
	state      atomic.Int32
}

// New creates a session in the Idle state.
func New(id string, interval, maxDuration time.Duration) *Session {
	s := &Session{
		ID:       id,
		Start:    NewOneShot(),
		Shutdown: NewOneShot(),
		Lock:     NewOneShot(),
	}
	s.interval.Store(int64(interval))
	s.maxDur.Store(int64(maxDuration))
	return s
}

// NewID formats a session ID from its creation time.
func NewID(t time.Time) string {
	return t.Format("20060102_150405")
}

// Begin assigns the start epoch and then raises the start signal. A worker
// that observes Start therefore always sees the final epoch.
func (s *Session) Begin(epoch time.Time) error {
	if !s.epochSet.CompareAndSwap(false, true) {
		return ErrEpochAlreadySet
	}
	s.epochNanos.Store(epoch.UnixNano())
	s.Start.Set()
	return nil
}

// Epoch returns the shared time origin. ok is false until Begin has run.
func (s *Session) Epoch() (epoch time.Time, ok bool) {
	if !s.Start.IsSet() {
		return time.Time{}, false
	}
	return time.Unix(0, s.epochNanos.Load()), true
}

func (s *Session) Interval() time.Duration    { return time.Duration(s.interval.Load()) }
func (s *Session) MaxDuration() time.Duration { return time.Duration(s.maxDur.Load()) }

// SetInterval changes the sampling interval. Workers pick it up on their
// next sample.
func (s *Session) SetInterval(d time.Duration) { s.interval.Store(int64(d)) }

// Satellites returns the last satellite count reported by the prober.
func (s *Session) Satellites() int { return int(s.satellites.Load()) }

// SetSatellites records a satellite count.
func (s *Session) SetSatellites(n int) { s.satellites.Store(int32(n)) }

func (s *Session) State() State      { return State(s.state.Load()) }
func (s *Session) SetState(st State) { s.state.Store(int32(st)) }

// Expired reports whether now is past the maximum duration of a started
// session. A zero maximum never expires.
func (s *Session) Expired(now time.Time) bool {
	maxDur := s.MaxDuration()
	if maxDur <= 0 {
		return false
	}
	epoch, ok := s.Epoch()
	if !ok {
		return false
	}
	return now.Sub(epoch) >= maxDur
}
