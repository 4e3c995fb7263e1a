// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relabs-tech/bird_logger/internal/button"
)

type scriptedWatcher struct{ gestures []button.Gesture }

func (w *scriptedWatcher) WatchHold(ctx context.Context) (button.Gesture, error) {
	if len(w.gestures) == 0 {
		<-ctx.Done()
		return button.None, ctx.Err()
	}
	g := w.gestures[0]
	w.gestures = w.gestures[1:]
	return g, nil
}

type countFlasher struct{ n atomic.Int32 }

func (f *countFlasher) Flash(n int) { f.n.Add(int32(n)) }

type countRebooter struct{ n atomic.Int32 }

func (r *countRebooter) Reboot() error { r.n.Add(1); return nil }

func launched(t *testing.T, workers ...Worker) (*Session, []*WorkerHandle) {
	t.Helper()
	s := New("t", time.Second, 0)
	handles, err := newTestLauncher(time.Now()).Launch(context.Background(), s, workers)
	if err != nil {
		t.Fatal(err)
	}
	return s, handles
}

func TestStopGracefulWorkerNotKilled(t *testing.T) {
	s, handles := launched(t, &fakeWorker{kind: "camera"}, &fakeWorker{kind: "adc"})
	sv := &Supervisor{Grace: 200 * time.Millisecond}

	begin := time.Now()
	results := sv.Stop(s, handles)
	if time.Since(begin) > 150*time.Millisecond {
		t.Errorf("Stop waited %s for workers that exit promptly", time.Since(begin))
	}
	for i, r := range results {
		if r.Killed || handles[i].Kills() != 0 {
			t.Errorf("%s killed although it exited within the grace period", r.Kind)
		}
	}
	if s.State() != ShuttingDown {
		t.Errorf("state = %v, want shutting_down", s.State())
	}
}

func TestStopKillsStubbornWorkerOnce(t *testing.T) {
	s, handles := launched(t, &fakeWorker{kind: "camera"}, &fakeWorker{kind: "spatial", stubborn: true})
	sv := &Supervisor{Grace: 20 * time.Millisecond}

	results := sv.Stop(s, handles)
	if results[0].Killed {
		t.Error("obedient worker was killed")
	}
	if !results[1].Killed {
		t.Fatal("stubborn worker was not killed")
	}
	if handles[1].Alive() {
		t.Error("stubborn worker still alive after Stop")
	}

	// Stopping again, or killing directly, must not terminate twice.
	sv.Stop(s, handles)
	if handles[1].Kill() {
		t.Error("Kill on a terminated worker reported a termination")
	}
	if got := handles[1].Kills(); got != 1 {
		t.Errorf("stubborn worker terminated %d times, want 1", got)
	}
	if got := handles[0].Kills(); got != 0 {
		t.Errorf("exited worker terminated %d times, want 0", got)
	}
}

func TestWatchShutdown(t *testing.T) {
	s := New("t", time.Second, 0)
	sv := &Supervisor{Button: &scriptedWatcher{gestures: []button.Gesture{button.Shutdown}}}
	if g := sv.Watch(context.Background(), s); g != button.Shutdown {
		t.Errorf("Watch = %v, want shutdown", g)
	}
	if !s.Shutdown.IsSet() {
		t.Error("shutdown signal not raised")
	}
}

func TestWatchReboot(t *testing.T) {
	s := New("t", time.Second, 0)
	f := &countFlasher{}
	r := &countRebooter{}
	sv := &Supervisor{Button: &scriptedWatcher{gestures: []button.Gesture{button.Reboot}}, LED: f, Rebooter: r}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan button.Gesture)
	go func() { done <- sv.Watch(ctx, s) }()

	select {
	case <-done:
		t.Fatal("Watch returned after reboot without cancellation")
	case <-time.After(20 * time.Millisecond):
	}
	cancel()
	if g := <-done; g != button.Reboot {
		t.Errorf("Watch = %v, want reboot", g)
	}
	if f.n.Load() != 3 || r.n.Load() != 1 {
		t.Errorf("flashes=%d reboots=%d, want 3 and 1", f.n.Load(), r.n.Load())
	}
	if s.Shutdown.IsSet() {
		t.Error("reboot raised the shutdown signal")
	}
}

func TestWatchCancelled(t *testing.T) {
	s := New("t", time.Second, 0)
	sv := &Supervisor{Button: &scriptedWatcher{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if g := sv.Watch(ctx, s); g != button.None {
		t.Errorf("Watch = %v, want none", g)
	}
}
