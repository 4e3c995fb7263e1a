// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	displayW = 128
	displayH = 64
)

// Drawer is the part of the SSD1306 driver the display uses.
type Drawer interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display shows the logger's status on a small OLED. Updates are rendered
// on the display's own goroutine so a slow I2C bus never holds up the
// session loop.
type Display struct {
	dev Drawer

	mu      sync.Mutex
	status  Status
	sats    Satellites
	pending bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	closeFn func() error
}

// OpenDisplay opens the SSD1306 on the named I2C bus. The driver always
// addresses the panel at 0x3C.
func OpenDisplay(busName string) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: open I2C bus %q: %w", busName, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: init on %s: %w", busName, err)
	}
	log.Printf("display: initialized on %s", busName)

	d := NewDisplay(dev)
	d.closeFn = func() error { return closeDisplay(dev, bus) }
	return d, nil
}

func closeDisplay(dev *ssd1306.Dev, bus i2c.BusCloser) error {
	if err := dev.Halt(); err != nil {
		bus.Close()
		return err
	}
	return bus.Close()
}

// NewDisplay drives dev and shows the splash screen.
func NewDisplay(dev Drawer) *Display {
	d := &Display{
		dev:  dev,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if err := d.draw(RenderSplash()); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}
	go d.loop()
	return d
}

func (d *Display) PublishStatus(st Status) {
	d.mu.Lock()
	d.status = st
	d.pending = true
	d.mu.Unlock()
	d.poke()
}

func (d *Display) PublishSatellites(sat Satellites) {
	d.mu.Lock()
	d.sats = sat
	d.pending = true
	d.mu.Unlock()
	d.poke()
}

func (d *Display) poke() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Display) loop() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		case <-d.wake:
		}

		d.mu.Lock()
		st, sats, pending := d.status, d.sats, d.pending
		d.pending = false
		d.mu.Unlock()
		if !pending {
			continue
		}
		if err := d.draw(RenderStatus(st, sats)); err != nil {
			log.Printf("display: error updating: %v", err)
		}
	}
}

func (d *Display) draw(img image.Image) error {
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

// Close stops updates and turns the panel off.
func (d *Display) Close() error {
	close(d.stop)
	<-d.done
	if d.closeFn != nil {
		return d.closeFn()
	}
	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayW, displayH))
	return img, &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func drawLines(dr *font.Drawer, lines ...string) {
	for i, line := range lines {
		dr.Dot = fixed.P(0, 13*(i+1))
		dr.DrawString(line)
	}
}

// RenderSplash is the boot screen.
func RenderSplash() *image1bit.VerticalLSB {
	img, dr := newCanvas()
	dr.Dot = fixed.P(20, 26)
	dr.DrawString("Bird Logger")
	dr.Dot = fixed.P(20, 45)
	dr.DrawString("Press to start")
	return img
}

// RenderStatus draws the status screen: state, session, satellites and
// LED pattern, one per line.
func RenderStatus(st Status, sats Satellites) *image1bit.VerticalLSB {
	img, dr := newCanvas()

	session := st.Session
	if session == "" {
		session = "--"
	}
	satLine := fmt.Sprintf("Sats: %d", st.Satellites)
	if sats.Total > 0 {
		satLine = fmt.Sprintf("Sats: %d G%d R%d E%d", sats.Total, sats.GPS, sats.GLONASS, sats.Galileo)
	}
	drawLines(dr,
		displayState(st.State),
		session,
		satLine,
		"LED: "+st.Pattern,
	)
	return img
}

func displayState(state string) string {
	switch state {
	case "idle":
		return "IDLE"
	case "preflight":
		return "CHECKING"
	case "searching_lock":
		return "SEARCHING SATS"
	case "logging":
		return "LOGGING"
	case "shutting_down":
		return "STOPPING"
	}
	return state
}
