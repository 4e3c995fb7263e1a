// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
)

// Port describes the spatial unit's serial link.
type Port struct {
	Name     string
	BaudRate int
}

// Open opens the serial port with 8N1 framing.
func (p Port) Open() (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              p.Name,
		BaudRate:              uint(p.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rw, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("gps: open %s: %w", p.Name, err)
	}
	log.Printf("gps: serial port opened on %s at %d baud", p.Name, p.BaudRate)
	return rw, nil
}

// Sentences parses NMEA lines from r and calls fn for each valid sentence
// until r fails, fn returns false, or ctx is cancelled. Cancellation closes
// r to unblock a pending read.
func Sentences(ctx context.Context, r io.ReadCloser, fn func(nmea.Sentence) bool) error {
	var once sync.Once
	closeR := func() { once.Do(func() { r.Close() }) }
	stop := context.AfterFunc(ctx, closeR)
	defer func() {
		stop()
		closeR()
	}()

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("gps: read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// partial or noisy sentences are common right after opening the port
			continue
		}
		if !fn(sentence) {
			return nil
		}
	}
}
