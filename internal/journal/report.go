// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package journal

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportAttempt is one attempt as written in a report.
type ReportAttempt struct {
	ID         string         `yaml:"id"`
	Created    time.Time      `yaml:"created"`
	Outcome    string         `yaml:"outcome"`
	Epoch      *time.Time     `yaml:"epoch,omitempty"`
	Duration   string         `yaml:"duration,omitempty"`
	Satellites int            `yaml:"satellites,omitempty"`
	Storage    string         `yaml:"storage,omitempty"`
	Workers    []ReportWorker `yaml:"workers,omitempty"`
}

// ReportWorker is one worker exit as written in a report.
type ReportWorker struct {
	Kind   string `yaml:"kind"`
	Killed bool   `yaml:"killed"`
	Error  string `yaml:"error,omitempty"`
}

// Report collects every attempt with its worker exits.
func (j *Journal) Report() ([]ReportAttempt, error) {
	attempts, err := j.Attempts()
	if err != nil {
		return nil, err
	}

	out := make([]ReportAttempt, 0, len(attempts))
	for _, a := range attempts {
		ra := ReportAttempt{
			ID:         a.ID,
			Created:    a.CreatedAt,
			Outcome:    "open",
			Satellites: a.Satellites,
			Storage:    a.Storage.String,
		}
		if a.Outcome.Valid {
			ra.Outcome = a.Outcome.String
		}
		if a.Epoch.Valid {
			epoch := a.Epoch.Time
			ra.Epoch = &epoch
			if a.EndedAt.Valid {
				ra.Duration = a.EndedAt.Time.Sub(epoch).Round(time.Second).String()
			}
		}

		exits, err := j.Exits(a.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range exits {
			ra.Workers = append(ra.Workers, ReportWorker{Kind: e.Kind, Killed: e.Killed, Error: e.Error.String})
		}
		out = append(out, ra)
	}
	return out, nil
}

// WriteReport writes the report as YAML.
func (j *Journal) WriteReport(w io.Writer) error {
	report, err := j.Report()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"attempts": report}); err != nil {
		return fmt.Errorf("journal: encode report: %w", err)
	}
	return enc.Close()
}
