// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock lets the timing-sensitive parts of the logger (gesture
// classification, lock waiting, settle delays) run against either the wall
// clock or a scripted one in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the subset of the time package the controller depends on.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type system struct{}

// System returns the wall clock.
func System() Clock { return system{} }

func (system) Now() time.Time        { return time.Now() }
func (system) Sleep(d time.Duration) { time.Sleep(d) }

// Fake is a manual clock. Sleep advances the fake time instead of blocking,
// so a single polling loop driven by a Fake runs deterministically.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	onSleep func(now time.Time)
}

// NewFake returns a Fake set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// OnSleep registers fn to be called after every Sleep with the new time.
// It runs on the sleeping goroutine.
func (f *Fake) OnSleep(fn func(now time.Time)) {
	f.mu.Lock()
	f.onSleep = fn
	f.mu.Unlock()
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now, fn := f.now, f.onSleep
	f.mu.Unlock()
	if fn != nil {
		fn(now)
	}
}

// Advance moves the clock forward without invoking the sleep hook.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
