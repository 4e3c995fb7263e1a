// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package led drives the status LED. Each blinking pattern runs on its own
// goroutine so its sleeps never stall button handling; switching patterns
// stops and joins the previous goroutine first, so only one task ever
// drives the LED.
package led

import (
	"log"
	"math"
	"sync"
	"time"
)

// Pattern is what the LED is showing.
type Pattern int

const (
	Off Pattern = iota
	SlowBlink
	FastBlink
	Breathe
	Solid
)

func (p Pattern) String() string {
	switch p {
	case Off:
		return "off"
	case SlowBlink:
		return "slow_blink"
	case FastBlink:
		return "fast_blink"
	case Breathe:
		return "breathe"
	case Solid:
		return "solid"
	}
	return "unknown"
}

// LED is a single status light.
type LED interface {
	Out(on bool) error
	// Duty sets a brightness in [0,1].
	Duty(fraction float64) error
}

// Timings of the patterns.
type Timings struct {
	SlowBlink   time.Duration // half period of the idle blink
	FastBlink   time.Duration // half period of the search blink
	BreatheStep time.Duration // 100 steps make one breath
	Flash       time.Duration
}

// DefaultTimings are the field defaults (1 s, 0.25 s, 2 s breath, 0.2 s flashes).
var DefaultTimings = Timings{
	SlowBlink:   time.Second,
	FastBlink:   250 * time.Millisecond,
	BreatheStep: 20 * time.Millisecond,
	Flash:       200 * time.Millisecond,
}

// Annunciator owns the LED and the single task driving it.
type Annunciator struct {
	led     LED
	timings Timings

	mu       sync.Mutex
	current  Pattern
	stop     chan struct{}
	done     chan struct{}
	observer func(Pattern)
}

// Option configures an Annunciator.
type Option func(*Annunciator)

// WithTimings overrides the pattern timings.
func WithTimings(t Timings) Option {
	return func(a *Annunciator) { a.timings = t }
}

// WithObserver registers fn to be told about every pattern change.
func WithObserver(fn func(Pattern)) Option {
	return func(a *Annunciator) { a.observer = fn }
}

// New returns an Annunciator with the LED off.
func New(led LED, opts ...Option) *Annunciator {
	a := &Annunciator{led: led, timings: DefaultTimings}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Current returns the active pattern.
func (a *Annunciator) Current() Pattern {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Set switches to p, stopping and joining the previous task first. The
// observer is told after the switch, outside the lock.
func (a *Annunciator) Set(p Pattern) {
	a.mu.Lock()
	a.stopLocked()
	a.current = p
	switch p {
	case Off:
		a.out(false)
	case Solid:
		a.out(true)
	case SlowBlink:
		a.startLocked(func(stop <-chan struct{}) { a.blink(a.timings.SlowBlink, stop) })
	case FastBlink:
		a.startLocked(func(stop <-chan struct{}) { a.blink(a.timings.FastBlink, stop) })
	case Breathe:
		a.startLocked(a.breathe)
	}
	a.mu.Unlock()

	a.notify(p)
}

// Flash blinks the LED n times, blocking until done, and leaves it off.
func (a *Annunciator) Flash(n int) {
	a.mu.Lock()
	a.stopLocked()
	for i := 0; i < n; i++ {
		a.out(true)
		time.Sleep(a.timings.Flash)
		a.out(false)
		time.Sleep(a.timings.Flash)
	}
	a.current = Off
	a.mu.Unlock()

	a.notify(Off)
}

func (a *Annunciator) notify(p Pattern) {
	if a.observer != nil {
		a.observer(p)
	}
}

// Close stops any running task and turns the LED off.
func (a *Annunciator) Close() {
	a.Set(Off)
}

func (a *Annunciator) stopLocked() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	<-a.done
	a.stop, a.done = nil, nil
}

func (a *Annunciator) startLocked(run func(stop <-chan struct{})) {
	stop := make(chan struct{})
	done := make(chan struct{})
	a.stop, a.done = stop, done
	go func() {
		defer close(done)
		run(stop)
	}()
}

func (a *Annunciator) blink(half time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(half)
	defer t.Stop()
	on := true
	for {
		a.out(on)
		select {
		case <-stop:
			a.out(false)
			return
		case <-t.C:
			on = !on
		}
	}
}

// breathe ramps the duty cycle along a sine wave until stopped.
func (a *Annunciator) breathe(stop <-chan struct{}) {
	t := time.NewTicker(a.timings.BreatheStep)
	defer t.Stop()
	for i := 0; ; i = (i + 1) % 100 {
		duty := 0.5 * (1 + math.Sin(float64(i)*2*math.Pi/100))
		if err := a.led.Duty(duty); err != nil {
			log.Printf("led: duty error: %v", err)
		}
		select {
		case <-stop:
			a.out(false)
			return
		case <-t.C:
		}
	}
}

func (a *Annunciator) out(on bool) {
	if err := a.led.Out(on); err != nil {
		log.Printf("led: output error: %v", err)
	}
}
