// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
)

// fakeWorker records what it saw and exits on shutdown unless stubborn.
type fakeWorker struct {
	kind     string
	stubborn bool
	exitNow  bool

	mu          sync.Mutex
	epoch       time.Time
	epochBefore bool // epoch was assigned when Start was observed
	sawShutdown bool
}

func (w *fakeWorker) Kind() string { return w.kind }

func (w *fakeWorker) Run(ctx context.Context, s *Session) error {
	if err := s.Start.Wait(ctx); err != nil {
		return err
	}
	epoch, _ := s.Epoch()
	w.mu.Lock()
	w.epoch = epoch
	w.epochBefore = s.epochSet.Load() && s.epochNanos.Load() != 0
	w.mu.Unlock()

	if w.exitNow {
		return nil
	}
	if !w.stubborn {
		select {
		case <-s.Shutdown.Done():
			w.mu.Lock()
			w.sawShutdown = true
			w.mu.Unlock()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (w *fakeWorker) seen() (time.Time, bool, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch, w.epochBefore, w.sawShutdown
}

func newTestLauncher(now time.Time) *Launcher {
	return &Launcher{Settle: 2 * time.Second, Clock: clock.NewFake(now)}
}

func TestLaunchSharesEpoch(t *testing.T) {
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	l := newTestLauncher(start)
	s := New("20260501_060000", time.Second, 0)

	workers := []*fakeWorker{{kind: "camera"}, {kind: "adc"}, {kind: "spatial"}}
	var ws []Worker
	for _, w := range workers {
		ws = append(ws, w)
	}

	handles, err := l.Launch(context.Background(), s, ws)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if s.State() != Logging {
		t.Errorf("state after launch = %v, want logging", s.State())
	}

	want := start.Add(2 * time.Second)
	s.Shutdown.Set()
	for _, h := range handles {
		<-h.Done()
	}
	for _, w := range workers {
		epoch, before, sawShutdown := w.seen()
		if !epoch.Equal(want) {
			t.Errorf("%s saw epoch %v, want %v", w.kind, epoch, want)
		}
		if !before {
			t.Errorf("%s observed start before the epoch was assigned", w.kind)
		}
		if !sawShutdown {
			t.Errorf("%s did not observe shutdown", w.kind)
		}
	}
}

func TestLaunchTwiceFails(t *testing.T) {
	l := newTestLauncher(time.Now())
	s := New("t", time.Second, 0)
	if _, err := l.Launch(context.Background(), s, nil); err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	if _, err := l.Launch(context.Background(), s, nil); err == nil {
		t.Error("second Launch of the same session succeeded")
	}
}

func TestHandlesDisjointAcrossSessions(t *testing.T) {
	l := newTestLauncher(time.Now())
	seen := map[uint64]bool{}
	for i := 0; i < 3; i++ {
		s := New("t", time.Second, 0)
		handles, err := l.Launch(context.Background(), s, []Worker{&fakeWorker{kind: "a", exitNow: true}, &fakeWorker{kind: "b", exitNow: true}})
		if err != nil {
			t.Fatal(err)
		}
		for _, h := range handles {
			<-h.Done()
			if seen[h.ID] {
				t.Errorf("handle ID %d reused", h.ID)
			}
			seen[h.ID] = true
		}
	}
}
