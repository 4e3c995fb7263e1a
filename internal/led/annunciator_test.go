// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package led

import (
	"sync"
	"testing"
	"time"
)

// recLED records writes and fails the test if two tasks drive it at once.
type recLED struct {
	mu      sync.Mutex
	busy    bool
	overlap bool
	ons     int
	duties  int
	last    bool
}

func (l *recLED) enter() {
	l.mu.Lock()
	if l.busy {
		l.overlap = true
	}
	l.busy = true
	l.mu.Unlock()
	time.Sleep(50 * time.Microsecond)
	l.mu.Lock()
	l.busy = false
	l.mu.Unlock()
}

func (l *recLED) Out(on bool) error {
	l.enter()
	l.mu.Lock()
	defer l.mu.Unlock()
	if on {
		l.ons++
	}
	l.last = on
	return nil
}

func (l *recLED) Duty(f float64) error {
	l.enter()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.duties++
	return nil
}

func (l *recLED) snapshot() (ons, duties int, last, overlap bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ons, l.duties, l.last, l.overlap
}

var fast = Timings{
	SlowBlink:   4 * time.Millisecond,
	FastBlink:   time.Millisecond,
	BreatheStep: time.Millisecond,
	Flash:       time.Millisecond,
}

func TestSetSwitchesWithoutOverlap(t *testing.T) {
	l := &recLED{}
	var seen []Pattern
	a := New(l, WithTimings(fast), WithObserver(func(p Pattern) { seen = append(seen, p) }))

	for _, p := range []Pattern{SlowBlink, FastBlink, Breathe, SlowBlink, Solid, Breathe, Off} {
		a.Set(p)
		time.Sleep(15 * time.Millisecond)
		if a.Current() != p {
			t.Errorf("Current() = %v, want %v", a.Current(), p)
		}
	}

	ons, duties, last, overlap := l.snapshot()
	if overlap {
		t.Error("two tasks drove the LED concurrently")
	}
	if ons == 0 || duties == 0 {
		t.Errorf("expected blinking and breathing, got ons=%d duties=%d", ons, duties)
	}
	if last {
		t.Error("LED left on after Off")
	}
	if len(seen) != 7 {
		t.Errorf("observer saw %d transitions, want 7", len(seen))
	}
}

func TestSolidStaysOn(t *testing.T) {
	l := &recLED{}
	a := New(l, WithTimings(fast))
	a.Set(FastBlink)
	time.Sleep(5 * time.Millisecond)
	a.Set(Solid)
	before, _, _, _ := l.snapshot()
	time.Sleep(10 * time.Millisecond)
	after, _, last, _ := l.snapshot()
	if !last || before != after {
		t.Errorf("solid LED changed after Set: last=%v ons %d -> %d", last, before, after)
	}
}

func TestFlash(t *testing.T) {
	l := &recLED{}
	a := New(l, WithTimings(fast))
	a.Set(Solid)
	base, _, _, _ := l.snapshot()

	a.Flash(3)

	ons, _, last, _ := l.snapshot()
	if ons-base != 3 {
		t.Errorf("Flash(3) turned the LED on %d times", ons-base)
	}
	if last || a.Current() != Off {
		t.Errorf("after Flash LED on=%v pattern=%v", last, a.Current())
	}
}

func TestObserverMayReadCurrent(t *testing.T) {
	var got []Pattern
	var a *Annunciator
	a = New(&recLED{}, WithTimings(fast), WithObserver(func(p Pattern) {
		got = append(got, a.Current())
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Set(FastBlink)
		a.Set(Solid)
		a.Flash(2)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer calling Current deadlocked")
	}

	want := []Pattern{FastBlink, Solid, Off}
	if len(got) != len(want) {
		t.Fatalf("observer saw %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("observer saw %v, want %v", got, want)
			break
		}
	}
}
