// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package worker

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVLog is an append-only CSV file flushed after every row, so a power cut
// loses at most the row being written.
type CSVLog struct {
	f    *os.File
	w    *csv.Writer
	rows int
}

// CreateCSV creates path and writes the header row.
func CreateCSV(path string, header []string) (*CSVLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	l := &CSVLog{f: f, w: csv.NewWriter(f)}
	if err := l.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Write appends one row and flushes it to the file.
func (l *CSVLog) Write(row []string) error {
	if err := l.write(row); err != nil {
		return err
	}
	l.rows++
	return nil
}

func (l *CSVLog) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", l.f.Name(), err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", l.f.Name(), err)
	}
	return nil
}

// Rows returns the number of data rows written.
func (l *CSVLog) Rows() int { return l.rows }

// Path returns the file name.
func (l *CSVLog) Path() string { return l.f.Name() }

// Close syncs and closes the file.
func (l *CSVLog) Close() error {
	if err := l.f.Sync(); err != nil {
		l.f.Close()
		return fmt.Errorf("sync %s: %w", l.f.Name(), err)
	}
	return l.f.Close()
}
