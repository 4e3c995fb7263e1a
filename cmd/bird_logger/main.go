// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/bird_logger/internal/app"
	"github.com/relabs-tech/bird_logger/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "configuration file")
	flag.Parse()

	log.Println("starting bird logger (button → session → sensor workers)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// A stray Ctrl+C on the field console must not end a session; systemd
	// stops the service with SIGTERM.
	signal.Ignore(os.Interrupt)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	err := app.RunLogger(ctx, config.Get())
	switch {
	case errors.Is(err, app.ErrRebooting):
		log.Println("reboot issued, exiting")
	case errors.Is(err, context.Canceled):
		log.Println("stopped")
	case err != nil:
		log.Fatalf("fatal: %v", err)
	}
}
