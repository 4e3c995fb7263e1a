// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/bird_logger/internal/config"
	"github.com/relabs-tech/bird_logger/internal/journal"
)

// Prints the session journal as YAML, for copying off the logger after a
// field day.
func main() {
	configPath := flag.String("config", config.DefaultPath, "configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	if cfg.JournalPath == "" {
		log.Fatal("JOURNAL_PATH is not configured")
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer j.Close()

	if err := j.WriteReport(os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
