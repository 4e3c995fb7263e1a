// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package button

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// gpioLine is an active-low button on a pulled-up GPIO input.
type gpioLine struct {
	pin gpio.PinIn
}

// OpenGPIO configures the named pin (e.g. "GPIO20") as a pulled-up input.
func OpenGPIO(name string) (Line, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("button: periph host init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("button: pin %q not found", name)
	}
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button: configure %s as input: %w", name, err)
	}
	return &gpioLine{pin: pin}, nil
}

func (l *gpioLine) Pressed() bool {
	return l.pin.Read() == gpio.Low
}
