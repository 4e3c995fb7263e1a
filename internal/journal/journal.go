// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package journal keeps a SQLite record of every session attempt and how
// its workers ended, so a retrieved logger can be checked against its data.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Outcome is how an attempt ended.
type Outcome string

const (
	PreflightFailed Outcome = "preflight_failed"
	LockTimeout     Outcome = "lock_timeout"
	Cancelled       Outcome = "cancelled"
	Completed       Outcome = "completed"
	Reboot          Outcome = "reboot"
)

const (
	insertAttemptSQL = `
INSERT INTO attempts (id, created_at)
VALUES (?, ?)`

	updateLaunchSQL = `
UPDATE attempts
SET epoch = ?, satellites = ?, storage = ?
WHERE id = ?`

	updateOutcomeSQL = `
UPDATE attempts
SET outcome = ?, ended_at = ?
WHERE id = ? AND outcome IS NULL`

	insertWorkerExitSQL = `
INSERT INTO worker_exits (attempt_id, kind, worker_id, killed, error)
VALUES (?, ?, ?, ?, ?)`

	selectAttemptsSQL = `
SELECT id, created_at, epoch, satellites, storage, outcome, ended_at
FROM attempts
ORDER BY created_at`
)

// Attempt is one row of the journal.
type Attempt struct {
	ID         string
	CreatedAt  time.Time
	Epoch      sql.NullTime
	Satellites int
	Storage    sql.NullString
	Outcome    sql.NullString
	EndedAt    sql.NullTime
}

// WorkerExit describes how one worker of an attempt ended.
type WorkerExit struct {
	Kind     string
	WorkerID uint64
	Killed   bool
	Err      error
}

// Journal is the attempt log.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin records a new attempt.
func (j *Journal) Begin(id string, createdAt time.Time) error {
	if _, err := j.db.Exec(insertAttemptSQL, id, createdAt.UTC()); err != nil {
		return fmt.Errorf("journal: insert attempt %s: %w", id, err)
	}
	return nil
}

// Launched records the epoch, satellite count and storage root of a launched
// attempt.
func (j *Journal) Launched(id string, epoch time.Time, satellites int, storage string) error {
	if _, err := j.db.Exec(updateLaunchSQL, epoch.UTC(), satellites, storage, id); err != nil {
		return fmt.Errorf("journal: update attempt %s: %w", id, err)
	}
	return nil
}

// Finish records the outcome of an attempt together with its worker exits.
// The first recorded outcome wins.
func (j *Journal) Finish(id string, outcome Outcome, endedAt time.Time, exits []WorkerExit) (err error) {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(updateOutcomeSQL, string(outcome), endedAt.UTC(), id); err != nil {
		return fmt.Errorf("journal: update outcome %s: %w", id, err)
	}
	for _, e := range exits {
		var msg sql.NullString
		if e.Err != nil {
			msg = sql.NullString{String: e.Err.Error(), Valid: true}
		}
		if _, err = tx.Exec(insertWorkerExitSQL, id, e.Kind, int64(e.WorkerID), e.Killed, msg); err != nil {
			return fmt.Errorf("journal: insert worker exit %s/%s: %w", id, e.Kind, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}
	return nil
}

// Attempts returns every attempt, oldest first.
func (j *Journal) Attempts() ([]Attempt, error) {
	rows, err := j.db.Query(selectAttemptsSQL)
	if err != nil {
		return nil, fmt.Errorf("journal: query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Epoch, &a.Satellites, &a.Storage, &a.Outcome, &a.EndedAt); err != nil {
			return nil, fmt.Errorf("journal: scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ExitRecord is a stored worker exit.
type ExitRecord struct {
	Kind     string
	WorkerID uint64
	Killed   bool
	Error    sql.NullString
}

// Exits returns the worker exits recorded for an attempt.
func (j *Journal) Exits(id string) ([]ExitRecord, error) {
	rows, err := j.db.Query(`SELECT kind, worker_id, killed, error FROM worker_exits WHERE attempt_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("journal: query exits: %w", err)
	}
	defer rows.Close()

	var out []ExitRecord
	for rows.Next() {
		var e ExitRecord
		var wid int64
		if err := rows.Scan(&e.Kind, &wid, &e.Killed, &e.Error); err != nil {
			return nil, fmt.Errorf("journal: scan exit: %w", err)
		}
		e.WorkerID = uint64(wid)
		out = append(out, e)
	}
	return out, rows.Err()
}
