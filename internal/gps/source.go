// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"io"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// FixSource keeps the latest Fix from an NMEA stream.
type FixSource struct {
	mu      sync.RWMutex
	current Fix
	have    bool
	counter Counter
}

// Run reads r until ctx is cancelled or the stream fails.
func (f *FixSource) Run(ctx context.Context, r io.ReadCloser) error {
	return Sentences(ctx, r, func(s nmea.Sentence) bool {
		f.Update(s)
		return true
	})
}

// Update folds one sentence into the current fix.
func (f *FixSource) Update(s nmea.Sentence) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.counter.Update(s) {
		f.current.Satellites = f.counter.Total()
	}
	switch m := s.(type) {
	case nmea.RMC:
		f.current.Time = nmeaTime(m.Date, m.Time)
		f.current.Latitude = m.Latitude
		f.current.Longitude = m.Longitude
		f.current.SpeedKnots = m.Speed
		f.current.CourseDeg = m.Course
		f.current.Valid = m.Validity == nmea.ValidRMC
		f.have = true
	case nmea.GGA:
		f.current.Latitude = m.Latitude
		f.current.Longitude = m.Longitude
		f.current.Height = m.Altitude
		f.have = true
	}
}

// Latest returns the current fix; ok is false until a position arrived.
func (f *FixSource) Latest() (Fix, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current, f.have
}

func nmeaTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Time{}
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD, t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
