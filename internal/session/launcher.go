// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
)

// Launcher starts the sensor workers of a session against one shared epoch.
type Launcher struct {
	Settle time.Duration
	Clock  clock.Clock

	nextID atomic.Uint64
}

// Launch spawns every worker, waits the settle delay, then assigns the epoch
// and raises the start signal. The returned handles belong to this session
// only.
func (l *Launcher) Launch(ctx context.Context, s *Session, workers []Worker) ([]*WorkerHandle, error) {
	if s.Start.IsSet() {
		return nil, fmt.Errorf("launch session %s: %w", s.ID, ErrEpochAlreadySet)
	}

	handles := make([]*WorkerHandle, 0, len(workers))
	for _, w := range workers {
		wctx, cancel := context.WithCancel(ctx)
		h := newHandle(w.Kind(), l.nextID.Add(1), cancel)
		handles = append(handles, h)

		go func(w Worker, h *WorkerHandle) {
			err := w.Run(wctx, s)
			if err != nil {
				log.Printf("session: %s worker #%d exited: %v", h.Kind, h.ID, err)
			}
			h.exit(err)
		}(w, h)
	}
	log.Printf("session: %d workers spawned for %s, settling %s", len(handles), s.ID, l.Settle)

	l.Clock.Sleep(l.Settle)

	epoch := l.Clock.Now()
	if err := s.Begin(epoch); err != nil {
		for _, h := range handles {
			h.Kill()
		}
		return nil, fmt.Errorf("launch session %s: %w", s.ID, err)
	}
	s.SetState(Logging)
	log.Printf("session: workers started at %s", epoch.Format(time.RFC3339Nano))
	return handles, nil
}
