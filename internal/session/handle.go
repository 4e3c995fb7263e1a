// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Worker is a sensor logger started by the Launcher. Run must block on
// s.Start before its first sample, return promptly once s.Shutdown is set,
// and return when ctx is cancelled (forced termination).
type Worker interface {
	Kind() string
	Run(ctx context.Context, s *Session) error
}

// WorkerHandle tracks one running worker for the lifetime of one session.
type WorkerHandle struct {
	Kind string
	// ID identifies the worker run. IDs are never reused by a process.
	ID uint64

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	err    error
	kills  atomic.Int32
	killed atomic.Bool
}

func newHandle(kind string, id uint64, cancel context.CancelFunc) *WorkerHandle {
	return &WorkerHandle{Kind: kind, ID: id, cancel: cancel, done: make(chan struct{})}
}

func (h *WorkerHandle) exit(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	h.cancel()
	close(h.done)
}

// Done is closed when the worker has returned.
func (h *WorkerHandle) Done() <-chan struct{} { return h.done }

// Alive reports whether the worker is still running.
func (h *WorkerHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Err returns the worker's exit error, nil while it is alive.
func (h *WorkerHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Kill forcibly terminates the worker. It reports whether this call did the
// termination; killing an exited or already killed worker is a no-op.
func (h *WorkerHandle) Kill() bool {
	if !h.Alive() {
		return false
	}
	if !h.killed.CompareAndSwap(false, true) {
		return false
	}
	h.kills.Add(1)
	h.cancel()
	return true
}

// Killed reports whether the worker was forcibly terminated.
func (h *WorkerHandle) Killed() bool { return h.killed.Load() }

// Kills returns how many forced terminations were delivered.
func (h *WorkerHandle) Kills() int { return int(h.kills.Load()) }
