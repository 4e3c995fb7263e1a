// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"io"
	"log"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/bird_logger/internal/session"
)

// DefaultLockThreshold is the number of satellites needed for lock.
const DefaultLockThreshold = 5

// Prober counts satellites on the spatial unit's NMEA stream and raises the
// session's lock signal once Threshold is reached.
type Prober struct {
	Open      func() (io.ReadWriteCloser, error)
	Threshold int
	// OnCount, if set, is told about every new total.
	OnCount func(total int, counts Counts)
}

// NewProber returns a Prober reading from port.
func NewProber(port Port, threshold int) *Prober {
	return &Prober{Open: port.Open, Threshold: threshold}
}

// Probe runs until lock, until the stream fails or until ctx is cancelled.
func (p *Prober) Probe(ctx context.Context, s *session.Session) error {
	rw, err := p.Open()
	if err != nil {
		return err
	}

	log.Printf("gps: waiting for %d satellites", p.Threshold)
	var counter Counter
	last := -1
	return Sentences(ctx, rw, func(sentence nmea.Sentence) bool {
		if !counter.Update(sentence) {
			return true
		}
		total := counter.Total()
		s.SetSatellites(total)
		if total != last {
			last = total
			log.Printf("gps: satellites: %d", total)
			if p.OnCount != nil {
				p.OnCount(total, counter.Counts())
			}
		}
		if total >= p.Threshold {
			log.Println("gps: satellite lock acquired")
			s.Lock.Set()
			return false
		}
		return true
	})
}
