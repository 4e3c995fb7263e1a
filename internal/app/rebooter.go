// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// CommandRebooter flushes filesystems and runs a reboot command.
type CommandRebooter struct {
	Command string
	// run executes the command; nil uses exec.
	run func(name string, args ...string) error
}

func (r CommandRebooter) Reboot() error {
	fields := strings.Fields(r.Command)
	if len(fields) == 0 {
		return fmt.Errorf("reboot: no command configured")
	}

	// Session files live on removable storage.
	unix.Sync()

	log.Printf("reboot: running %q", r.Command)
	run := r.run
	if run == nil {
		run = func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		}
	}
	if err := run(fields[0], fields[1:]...); err != nil {
		return fmt.Errorf("reboot: %s: %w", r.Command, err)
	}
	return nil
}
