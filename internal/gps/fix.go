// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "time"

// Fix is the latest position assembled from RMC and GGA sentences.
type Fix struct {
	Time       time.Time `json:"time"`        // receiver UTC time of the last sentence
	Latitude   float64   `json:"lat"`         // decimal degrees
	Longitude  float64   `json:"lon"`         // decimal degrees
	Height     float64   `json:"height"`      // metres above mean sea level
	SpeedKnots float64   `json:"speed_knots"` // speed over ground
	CourseDeg  float64   `json:"course_deg"`  // course over ground
	Satellites int       `json:"satellites"`  // satellites used in the solution
	Valid      bool      `json:"valid"`       // RMC status "A"
}
