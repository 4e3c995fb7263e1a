// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"sync"
)

// OneShot is a flag that goes from unset to set exactly once and is never
// cleared. Set is idempotent and safe to call from any goroutine.
type OneShot struct {
	once sync.Once
	ch   chan struct{}
}

// NewOneShot returns an unset OneShot.
func NewOneShot() *OneShot {
	return &OneShot{ch: make(chan struct{})}
}

// Set raises the flag. It reports whether this call was the one that set it.
func (o *OneShot) Set() bool {
	set := false
	o.once.Do(func() {
		close(o.ch)
		set = true
	})
	return set
}

// IsSet reports whether the flag has been raised.
func (o *OneShot) IsSet() bool {
	select {
	case <-o.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the flag is raised.
func (o *OneShot) Done() <-chan struct{} {
	return o.ch
}

// Wait blocks until the flag is raised or ctx is done.
func (o *OneShot) Wait(ctx context.Context) error {
	select {
	case <-o.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
