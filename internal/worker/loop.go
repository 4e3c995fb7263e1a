// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package worker implements the sensor workers started by a session. Every
// worker shares one loop: wait for the start signal, read the epoch once,
// sample every interval into a CSV log, stop at the maximum duration or on
// the shutdown signal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/relabs-tech/bird_logger/internal/clock"
	"github.com/relabs-tech/bird_logger/internal/session"
)

// DefaultPoll is how often the loop checks its signals between samples.
const DefaultPoll = 10 * time.Millisecond

// TimestampLayout is the wall-clock column format.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// ErrNoSample tells the loop that nothing is available yet; it retries on
// the next poll without advancing the interval.
var ErrNoSample = errors.New("worker: no sample available")

// Sampler produces the data columns of one row.
type Sampler interface {
	Columns() []string
	// Sample is called once per interval; dir is the session directory for
	// any side files (images).
	Sample(ctx context.Context, dir string, now time.Time) ([]string, error)
	Close() error
}

// OpenFunc brings up a sampler's device. It runs after the worker is spawned
// and before the start signal, inside the settle delay.
type OpenFunc func(ctx context.Context) (Sampler, error)

// Loop is a session.Worker driving one Sampler.
type Loop struct {
	kind string
	Root string
	// File is the CSV name inside the session directory.
	File  string
	Open  OpenFunc
	Clock clock.Clock
	Poll  time.Duration
}

var _ session.Worker = (*Loop)(nil)

// NewLoop returns a worker writing under root/kind/<session id>/.
func NewLoop(kind, root string, open OpenFunc) *Loop {
	return &Loop{
		kind:  kind,
		Root:  root,
		File:  kind + "_log.csv",
		Open:  open,
		Clock: clock.System(),
		Poll:  DefaultPoll,
	}
}

func (l *Loop) Kind() string { return l.kind }

// Dir returns the session directory for s.
func (l *Loop) Dir(s *session.Session) string {
	return filepath.Join(l.Root, l.kind, s.ID)
}

// Run is the worker body. A graceful stop returns nil; cancellation of ctx
// returns its error.
func (l *Loop) Run(ctx context.Context, s *session.Session) error {
	dir := l.Dir(s)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: %w", l.kind, err)
	}

	smp, err := l.Open(ctx)
	if err != nil {
		return fmt.Errorf("%s: open: %w", l.kind, err)
	}
	defer smp.Close()

	header := append([]string{"timestamp", "elapsed_s"}, smp.Columns()...)
	out, err := CreateCSV(filepath.Join(dir, l.File), header)
	if err != nil {
		return fmt.Errorf("%s: %w", l.kind, err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("%s: %v", l.kind, err)
		}
		log.Printf("%s: %d rows saved to %s", l.kind, out.Rows(), out.Path())
	}()

	log.Printf("%s: initialized, waiting to start", l.kind)
	select {
	case <-s.Start.Done():
	case <-s.Shutdown.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	epoch, _ := s.Epoch()
	log.Printf("%s: started at %s", l.kind, epoch.Format(time.RFC3339Nano))

	var last time.Time
	sampled := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Shutdown.IsSet() {
			log.Printf("%s: shutdown signal received", l.kind)
			return nil
		}

		now := l.Clock.Now()
		if s.Expired(now) {
			log.Printf("%s: max duration reached", l.kind)
			return nil
		}

		if !sampled || now.Sub(last) >= s.Interval() {
			cols, err := smp.Sample(ctx, dir, now)
			switch {
			case errors.Is(err, ErrNoSample):
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("%s: sample: %w", l.kind, err)
			default:
				row := append([]string{
					now.Format(TimestampLayout),
					strconv.FormatFloat(now.Sub(epoch).Seconds(), 'f', 3, 64),
				}, cols...)
				if err := out.Write(row); err != nil {
					return fmt.Errorf("%s: %w", l.kind, err)
				}
				sampled = true
				last = now
			}
		}

		l.Clock.Sleep(l.Poll)
	}
}
