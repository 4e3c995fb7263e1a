// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps reads NMEA from the spatial unit's serial port: satellite
// counts for the lock gate and position fixes for the spatial log.
package gps

import (
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Constellation is a GNSS system.
type Constellation int

const (
	GPS Constellation = iota
	GLONASS
	Galileo
	BeiDou
	SBAS
	numConstellations
)

func (c Constellation) String() string {
	return [...]string{"gps", "glonass", "galileo", "beidou", "sbas"}[c]
}

// Counts holds the satellites used in the solution per constellation.
type Counts [numConstellations]int

// Total is the satellite count across all constellations.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Counter accumulates satellite counts from NMEA sentences.
//
// GSA sentences list the satellites used per constellation; each one
// replaces the count of the constellations it reports. Multi-GNSS receivers
// send one GNGSA per system, told apart by the NMEA 4.10 system ID. GGA only carries a
// total and is used until the first GSA arrives.
type Counter struct {
	counts  Counts
	ggaSats int
	haveGSA bool
}

// Update feeds one parsed sentence. It reports whether the total may have
// changed.
func (c *Counter) Update(s nmea.Sentence) bool {
	switch m := s.(type) {
	case nmea.GSA:
		talker := s.TalkerID()
		if m.SystemID > 0 {
			var ok bool
			if talker, ok = systemTalker(m.SystemID); !ok {
				return false
			}
		}
		per, touched := countGSA(talker, m.SV)
		for i := range per {
			if touched[i] {
				c.counts[i] = per[i]
			}
		}
		c.haveGSA = true
		return true
	case nmea.GGA:
		c.ggaSats = int(m.NumSatellites)
		return !c.haveGSA
	}
	return false
}

// Counts returns the per-constellation breakdown.
func (c *Counter) Counts() Counts { return c.counts }

// Total returns the current total satellite count.
func (c *Counter) Total() int {
	if !c.haveGSA {
		return c.ggaSats
	}
	return c.counts.Total()
}

// systemTalker maps an NMEA 4.10 GSA system ID to the talker of that
// constellation, so a GNGSA per system counts like its single-system form.
// QZSS and NavIC are not counted.
func systemTalker(id int64) (string, bool) {
	switch id {
	case 1:
		return "GP", true
	case 2:
		return "GL", true
	case 3:
		return "GA", true
	case 4:
		return "GB", true
	}
	return "", false
}

// countGSA classifies the PRNs of one GSA sentence. A single-system talker
// always touches its own constellation, so an empty list resets it to zero.
func countGSA(talker string, svs []string) (per Counts, touched [numConstellations]bool) {
	switch talker {
	case "GP":
		touched[GPS], touched[SBAS] = true, true
	case "GL":
		touched[GLONASS] = true
	case "GA":
		touched[Galileo] = true
	case "GB", "BD":
		touched[BeiDou] = true
	}
	for _, sv := range svs {
		sv = strings.TrimSpace(sv)
		if sv == "" {
			continue
		}
		prn, err := strconv.Atoi(sv)
		if err != nil {
			continue
		}
		c := classify(talker, prn)
		per[c]++
		touched[c] = true
	}
	return per, touched
}

// classify maps a PRN to its constellation using the NMEA numbering
// (1-32 GPS, 33-64 SBAS, 65-96 GLONASS) and the talker for the rest.
func classify(talker string, prn int) Constellation {
	switch talker {
	case "GL":
		return GLONASS
	case "GA":
		return Galileo
	case "GB", "BD":
		return BeiDou
	}
	switch {
	case prn >= 33 && prn <= 64:
		return SBAS
	case prn >= 65 && prn <= 96:
		return GLONASS
	case prn >= 201 && prn <= 264:
		return BeiDou
	case prn >= 301 && prn <= 336:
		return Galileo
	}
	return GPS
}
