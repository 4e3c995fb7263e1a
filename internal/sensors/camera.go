// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Camera captures JPEG stills with an external still-capture tool
// (rpicam-still on current Raspberry Pi OS).
type Camera struct {
	// Command is the tool and any fixed arguments, split on spaces.
	Command string
	Quality int
}

// Args returns the argument list for a capture to path.
func (c Camera) Args(path string) []string {
	fields := strings.Fields(c.Command)
	args := append([]string{}, fields[1:]...)
	return append(args,
		"--nopreview",
		"--immediate",
		"--encoding", "jpg",
		"--quality", strconv.Itoa(c.Quality),
		"--output", path,
	)
}

// Capture takes one still and writes it to path.
func (c Camera) Capture(ctx context.Context, path string) error {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return fmt.Errorf("camera: no capture command configured")
	}

	cmd := exec.CommandContext(ctx, fields[0], c.Args(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("camera: %s: %w: %s", fields[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Available reports whether the capture tool is on PATH.
func (c Camera) Available() bool {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return false
	}
	_, err := exec.LookPath(fields[0])
	return err == nil
}
