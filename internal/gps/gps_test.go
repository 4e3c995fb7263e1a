// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/bird_logger/internal/session"
)

// sentence appends the NMEA checksum to body (without '$').
func sentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func parse(t *testing.T, body string) nmea.Sentence {
	t.Helper()
	s, err := nmea.Parse(sentence(body))
	if err != nil {
		t.Fatalf("parse %q: %v", body, err)
	}
	return s
}

func TestCounter(t *testing.T) {
	var c Counter

	c.Update(parse(t, "GPGGA,092750.000,5321.6802,N,00630.3372,W,1,03,1.03,61.7,M,55.2,M,,"))
	if c.Total() != 3 {
		t.Errorf("total from GGA = %d, want 3", c.Total())
	}

	c.Update(parse(t, "GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"))
	if c.Total() != 5 {
		t.Errorf("total after GPGSA = %d, want 5", c.Total())
	}

	c.Update(parse(t, "GLGSA,A,3,70,71,,,,,,,,,,,2.5,1.3,2.1"))
	c.Update(parse(t, "GPGGA,092751.000,5321.6802,N,00630.3372,W,1,02,1.03,61.7,M,55.2,M,,"))
	counts := c.Counts()
	if counts[GPS] != 5 || counts[GLONASS] != 2 {
		t.Errorf("counts = %v, want gps=5 glonass=2", counts)
	}
	if c.Total() != 7 {
		t.Errorf("total = %d, want 7 (GGA ignored once GSA seen)", c.Total())
	}

	// An empty GLONASS GSA drops that constellation to zero.
	c.Update(parse(t, "GLGSA,A,1,,,,,,,,,,,,,,,"))
	if c.Total() != 5 {
		t.Errorf("total after empty GLGSA = %d, want 5", c.Total())
	}
}

func TestCounterSystemID(t *testing.T) {
	var c Counter

	c.Update(parse(t, "GNGSA,A,3,05,13,15,,,,,,,,,,1.6,0.9,1.3,1"))
	c.Update(parse(t, "GNGSA,A,3,03,08,,,,,,,,,,,1.6,0.9,1.3,3"))
	counts := c.Counts()
	if counts[GPS] != 3 || counts[Galileo] != 2 {
		t.Errorf("counts = %v, want gps=3 galileo=2", counts)
	}
	if c.Total() != 5 {
		t.Errorf("total = %d, want 5", c.Total())
	}

	c.Update(parse(t, "GNGSA,A,3,65,72,,,,,,,,,,,1.6,0.9,1.3,2"))
	c.Update(parse(t, "GNGSA,A,3,11,,,,,,,,,,,,1.6,0.9,1.3,4"))
	c.Update(parse(t, "GNGSA,A,3,46,,,,,,,,,,,,1.6,0.9,1.3,1"))
	counts = c.Counts()
	if counts[GLONASS] != 2 || counts[BeiDou] != 1 || counts[SBAS] != 1 || counts[GPS] != 0 {
		t.Errorf("counts = %v, want glonass=2 beidou=1 sbas=1 gps=0", counts)
	}

	// An empty Galileo list drops Galileo; QZSS is not counted.
	c.Update(parse(t, "GNGSA,A,3,,,,,,,,,,,,,1.6,0.9,1.3,3"))
	c.Update(parse(t, "GNGSA,A,3,02,,,,,,,,,,,,1.6,0.9,1.3,5"))
	if c.Total() != 4 {
		t.Errorf("total = %d, want 4 (counts %v)", c.Total(), c.Counts())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		talker string
		prn    int
		want   Constellation
	}{
		{"GP", 12, GPS},
		{"GP", 40, SBAS},
		{"GN", 70, GLONASS},
		{"GN", 210, BeiDou},
		{"GN", 305, Galileo},
		{"GA", 5, Galileo},
		{"GB", 5, BeiDou},
		{"BD", 5, BeiDou},
		{"GL", 5, GLONASS},
	}
	for _, tt := range tests {
		if got := classify(tt.talker, tt.prn); got != tt.want {
			t.Errorf("classify(%s, %d) = %v, want %v", tt.talker, tt.prn, got, tt.want)
		}
	}
}

type readCloser struct {
	io.Reader
	closed bool
}

func (r *readCloser) Write(p []byte) (int, error) { return len(p), nil }
func (r *readCloser) Close() error {
	r.closed = true
	if c, ok := r.Reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func stream(lines ...string) string {
	var b strings.Builder
	b.WriteString("garbage\r\n$GPGGA,partial\r\n")
	for _, l := range lines {
		b.WriteString(sentence(l))
		b.WriteString("\r\n")
	}
	return b.String()
}

func TestProberRaisesLock(t *testing.T) {
	rc := &readCloser{Reader: strings.NewReader(stream(
		"GPGSA,A,3,04,05,,,,,,,,,,,2.5,1.3,2.1",
		"GPGSA,A,3,04,05,09,12,24,,,,,,,,2.5,1.3,2.1",
		"GPGSA,A,3,04,05,09,12,24,25,,,,,,,2.5,1.3,2.1",
	))}
	var totals []int
	p := &Prober{
		Open:      func() (io.ReadWriteCloser, error) { return rc, nil },
		Threshold: 5,
		OnCount:   func(total int, _ Counts) { totals = append(totals, total) },
	}
	s := session.New("t", time.Second, 0)

	if err := p.Probe(context.Background(), s); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !s.Lock.IsSet() {
		t.Error("lock not raised")
	}
	if s.Satellites() != 5 {
		t.Errorf("satellites = %d, want 5 (stop at first lock)", s.Satellites())
	}
	if len(totals) != 2 || totals[0] != 2 || totals[1] != 5 {
		t.Errorf("OnCount totals = %v, want [2 5]", totals)
	}
	if !rc.closed {
		t.Error("port not closed")
	}
}

func TestProberBelowThreshold(t *testing.T) {
	rc := &readCloser{Reader: strings.NewReader(stream("GPGSA,A,3,04,05,09,,,,,,,,,,2.5,1.3,2.1"))}
	p := &Prober{Open: func() (io.ReadWriteCloser, error) { return rc, nil }, Threshold: 5}
	s := session.New("t", time.Second, 0)

	if err := p.Probe(context.Background(), s); err == nil {
		t.Error("Probe returned nil at end of stream")
	}
	if s.Lock.IsSet() || s.Satellites() != 3 {
		t.Errorf("lock=%v satellites=%d, want no lock and 3", s.Lock.IsSet(), s.Satellites())
	}
}

func TestProberCancelClosesPort(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	rc := &readCloser{Reader: pr}
	p := &Prober{Open: func() (io.ReadWriteCloser, error) { return rc, nil }, Threshold: 5}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Probe(ctx, session.New("t", time.Second, 0)) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Probe = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Probe did not return after cancellation")
	}
}

func TestProberOpenError(t *testing.T) {
	p := &Prober{Open: func() (io.ReadWriteCloser, error) { return nil, errors.New("no port") }, Threshold: 5}
	if err := p.Probe(context.Background(), session.New("t", time.Second, 0)); err == nil {
		t.Error("Probe succeeded without a port")
	}
}

func TestFixSource(t *testing.T) {
	var f FixSource
	if _, ok := f.Latest(); ok {
		t.Fatal("fix available before any sentence")
	}

	f.Update(parse(t, "GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130626,004.2,W"))
	f.Update(parse(t, "GPGGA,220517.000,5133.8200,N,00042.2400,W,1,08,1.03,61.7,M,55.2,M,,"))

	fix, ok := f.Latest()
	if !ok {
		t.Fatal("no fix after RMC")
	}
	if !fix.Valid || fix.SpeedKnots != 173.8 || fix.CourseDeg != 231.8 {
		t.Errorf("RMC fields not applied: %+v", fix)
	}
	if fix.Height != 61.7 || fix.Satellites != 8 {
		t.Errorf("GGA fields not applied: %+v", fix)
	}
	want := time.Date(2026, 6, 13, 22, 5, 16, 0, time.UTC)
	if !fix.Time.Equal(want) {
		t.Errorf("fix time = %v", fix.Time)
	}
}
