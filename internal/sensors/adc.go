// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// adcSampleRate is the conversion rate requested from the ADS1115. It only
// needs to outpace the slowest session interval.
const adcSampleRate = 128 * physic.Hertz

var adcChannels = [...]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// ADC reads single-ended voltages from an ADS1115 (the magnetometer's
// analog outputs on the logger).
type ADC struct {
	bus      i2c.BusCloser
	dev      *ads1x15.Dev
	channels []int
	pins     []ads1x15.PinADC
}

// OpenADS1115 opens the converter on the named I2C bus ("" picks the first
// bus) at addr and prepares one pin per requested channel.
func OpenADS1115(busName string, addr uint16, channels []int, fullScale physic.ElectricPotential) (*ADC, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("adc: open I2C bus %q: %w", busName, err)
	}

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = addr
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("adc: ADS1115 init at 0x%02X: %w", addr, err)
	}

	a := &ADC{bus: bus, dev: dev, channels: channels}
	for _, ch := range channels {
		if ch < 0 || ch >= len(adcChannels) {
			a.Close()
			return nil, fmt.Errorf("adc: channel %d out of range", ch)
		}
		pin, err := dev.PinForChannel(adcChannels[ch], fullScale, adcSampleRate, ads1x15.BestQuality)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("adc: channel %d: %w", ch, err)
		}
		a.pins = append(a.pins, pin)
	}

	log.Printf("adc: ADS1115 ready at 0x%02X, channels %v", addr, channels)
	return a, nil
}

// Channels returns the channel numbers in read order.
func (a *ADC) Channels() []int { return a.channels }

// Read converts every configured channel once and returns volts in
// channel order.
func (a *ADC) Read() ([]float64, error) {
	volts := make([]float64, len(a.pins))
	for i, pin := range a.pins {
		s, err := pin.Read()
		if err != nil {
			return nil, fmt.Errorf("adc: read channel %d: %w", a.channels[i], err)
		}
		volts[i] = Volts(s)
	}
	return volts, nil
}

// Close halts the pins and releases the bus.
func (a *ADC) Close() error {
	for _, pin := range a.pins {
		pin.Halt()
	}
	a.pins = nil
	return a.bus.Close()
}

// Volts converts an analog sample to volts.
func Volts(s analog.Sample) float64 {
	return float64(s.V) / float64(physic.Volt)
}
