// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package led

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const pwmFrequency = 100 * physic.Hertz

type gpioLED struct {
	pin   gpio.PinIO
	noPWM bool
}

// OpenGPIO configures the named pin as the status LED output, initially off.
func OpenGPIO(name string) (LED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("led: periph host init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("led: pin %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led: configure %s as output: %w", name, err)
	}
	return &gpioLED{pin: pin}, nil
}

func (l *gpioLED) Out(on bool) error {
	if on {
		return l.pin.Out(gpio.High)
	}
	return l.pin.Out(gpio.Low)
}

// Duty uses hardware PWM when the pin has it, and falls back to on/off
// around half brightness otherwise.
func (l *gpioLED) Duty(fraction float64) error {
	if !l.noPWM {
		d := gpio.Duty(fraction * float64(gpio.DutyMax))
		err := l.pin.PWM(d, pwmFrequency)
		if err == nil {
			return nil
		}
		log.Printf("led: PWM unavailable on %s, using on/off: %v", l.pin.Name(), err)
		l.noPWM = true
	}
	return l.Out(fraction >= 0.5)
}
