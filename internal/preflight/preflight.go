// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package preflight checks that the storage medium and the spatial unit's
// serial device are present before a session starts.
package preflight

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
)

// ErrPreflightFailed is returned in strict mode when storage or the serial
// device is missing. The caller is expected to stop for good.
var ErrPreflightFailed = errors.New("preflight: storage or serial device missing")

// System answers the questions the gate asks about the host.
type System interface {
	IsMounted(path string) (bool, error)
	Exists(path string) bool
	FreeBytes(path string) (uint64, error)
}

// Gate is the preflight check.
type Gate struct {
	StoragePath  string // mount point of the logging medium
	FallbackPath string // used in relaxed mode when storage is missing
	SerialPath   string
	// Strict requires both storage and serial; otherwise missing storage
	// falls back to FallbackPath and a missing serial device is only logged.
	Strict bool
	System System
}

// Result is the outcome of a passing check.
type Result struct {
	StorageOK bool
	SerialOK  bool
	// Root is the directory the workers write under.
	Root string
}

// Check runs the preflight.
func (g *Gate) Check() (Result, error) {
	storageOK, err := g.System.IsMounted(g.StoragePath)
	if err != nil {
		log.Printf("preflight: checking mount %s: %v", g.StoragePath, err)
		storageOK = false
	}
	serialOK := g.System.Exists(g.SerialPath)
	res := Result{StorageOK: storageOK, SerialOK: serialOK, Root: g.StoragePath}

	if g.Strict && (!storageOK || !serialOK) {
		log.Printf("preflight: storage mounted=%v serial present=%v", storageOK, serialOK)
		return res, ErrPreflightFailed
	}
	if !storageOK {
		log.Printf("preflight: WARNING: %s not mounted, using %s", g.StoragePath, g.FallbackPath)
		res.Root = g.FallbackPath
	}
	if !serialOK {
		log.Printf("preflight: WARNING: serial device %s not found", g.SerialPath)
	}

	if free, err := g.System.FreeBytes(res.Root); err != nil {
		log.Printf("preflight: free space of %s unknown: %v", res.Root, err)
	} else {
		log.Printf("preflight: logging to %s (%s free)", res.Root, humanize.Bytes(free))
	}
	return res, nil
}

type host struct{}

// Host returns the System of the machine we run on.
func Host() System { return host{} }

// IsMounted reports whether path is a mount point in the partition table.
func (host) IsMounted(path string) (bool, error) {
	parts, err := disk.Partitions(true)
	if err != nil {
		return false, fmt.Errorf("preflight: list partitions: %w", err)
	}
	want := filepath.Clean(path)
	for _, p := range parts {
		if filepath.Clean(p.Mountpoint) == want {
			return true, nil
		}
	}
	return false, nil
}

func (host) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (host) FreeBytes(path string) (uint64, error) {
	u, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return u.Free, nil
}
