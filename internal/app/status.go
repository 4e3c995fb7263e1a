// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"time"

	"github.com/relabs-tech/bird_logger/internal/gps"
)

// Status is the logger's externally visible state.
type Status struct {
	Session    string    `json:"session,omitempty"`
	State      string    `json:"state"`
	Pattern    string    `json:"pattern"`
	Satellites int       `json:"satellites"`
	Time       time.Time `json:"time"`
}

// Satellites is a per-constellation satellite count.
type Satellites struct {
	Total   int       `json:"total"`
	GPS     int       `json:"gps"`
	GLONASS int       `json:"glonass"`
	Galileo int       `json:"galileo"`
	BeiDou  int       `json:"beidou"`
	SBAS    int       `json:"sbas"`
	Time    time.Time `json:"time"`
}

// NewSatellites flattens counts for publishing.
func NewSatellites(counts gps.Counts, now time.Time) Satellites {
	return Satellites{
		Total:   counts.Total(),
		GPS:     counts[gps.GPS],
		GLONASS: counts[gps.GLONASS],
		Galileo: counts[gps.Galileo],
		BeiDou:  counts[gps.BeiDou],
		SBAS:    counts[gps.SBAS],
		Time:    now,
	}
}

// StatusSink receives status updates. Implementations must not block the
// caller for long.
type StatusSink interface {
	PublishStatus(Status)
	PublishSatellites(Satellites)
}

// sinks fans updates out to several StatusSinks.
type sinks []StatusSink

func (ss sinks) PublishStatus(st Status) {
	for _, s := range ss {
		s.PublishStatus(st)
	}
}

func (ss sinks) PublishSatellites(sat Satellites) {
	for _, s := range ss {
		s.PublishSatellites(sat)
	}
}
