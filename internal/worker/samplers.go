// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package worker

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/bird_logger/internal/gps"
	"github.com/relabs-tech/bird_logger/internal/sensors"
)

// Worker kinds. They double as directory names under the storage root.
const (
	KindCamera  = "camera"
	KindADC     = "adc"
	KindSpatial = "spatial"
)

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// Capturer takes one still image.
type Capturer interface {
	Capture(ctx context.Context, path string) error
}

type cameraSampler struct {
	cam Capturer
}

// NewCamera returns the camera worker.
func NewCamera(root string, cam Capturer) *Loop {
	l := NewLoop(KindCamera, root, func(context.Context) (Sampler, error) {
		return cameraSampler{cam: cam}, nil
	})
	l.File = "cam_data.csv"
	return l
}

func (cameraSampler) Columns() []string { return []string{"filename"} }

func (c cameraSampler) Sample(ctx context.Context, dir string, now time.Time) ([]string, error) {
	name := now.Format("20060102_150405.000") + ".jpg"
	if err := c.cam.Capture(ctx, filepath.Join(dir, name)); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

func (cameraSampler) Close() error { return nil }

// VoltageReader reads a fixed set of ADC channels.
type VoltageReader interface {
	Channels() []int
	Read() ([]float64, error)
	Close() error
}

type adcSampler struct {
	r VoltageReader
}

// NewADC returns the ADC worker; open brings up the converter.
func NewADC(root string, open func() (VoltageReader, error)) *Loop {
	return NewLoop(KindADC, root, func(context.Context) (Sampler, error) {
		r, err := open()
		if err != nil {
			return nil, err
		}
		return adcSampler{r: r}, nil
	})
}

// OpenADS1115 adapts sensors.OpenADS1115 for NewADC.
func OpenADS1115(bus string, addr uint16, channels []int, fullScaleMV int) func() (VoltageReader, error) {
	return func() (VoltageReader, error) {
		adc, err := sensors.OpenADS1115(bus, addr, channels, physic.ElectricPotential(fullScaleMV)*physic.MilliVolt)
		if err != nil {
			return nil, err
		}
		return adc, nil
	}
}

func (a adcSampler) Columns() []string {
	cols := make([]string, 0, len(a.r.Channels()))
	for _, ch := range a.r.Channels() {
		cols = append(cols, fmt.Sprintf("ch%d_v", ch))
	}
	return cols
}

func (a adcSampler) Sample(context.Context, string, time.Time) ([]string, error) {
	volts, err := a.r.Read()
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(volts))
	for i, v := range volts {
		cols[i] = formatFloat(v, 6)
	}
	return cols, nil
}

func (a adcSampler) Close() error { return a.r.Close() }

type spatialSampler struct {
	src    *gps.FixSource
	cancel context.CancelFunc
	done   chan error
}

// NewSpatial returns the spatial worker reading NMEA fixes from the port
// opened by open.
func NewSpatial(root string, open func() (io.ReadWriteCloser, error)) *Loop {
	return NewLoop(KindSpatial, root, func(ctx context.Context) (Sampler, error) {
		rw, err := open()
		if err != nil {
			return nil, err
		}
		rctx, cancel := context.WithCancel(ctx)
		sp := &spatialSampler{src: &gps.FixSource{}, cancel: cancel, done: make(chan error, 1)}
		go func() { sp.done <- sp.src.Run(rctx, rw) }()
		return sp, nil
	})
}

func (*spatialSampler) Columns() []string {
	return []string{"latitude", "longitude", "height", "speed_knots", "course_deg", "satellites"}
}

func (sp *spatialSampler) Sample(context.Context, string, time.Time) ([]string, error) {
	select {
	case err := <-sp.done:
		if err == nil {
			err = io.EOF
		}
		sp.done <- err
		return nil, fmt.Errorf("stream ended: %w", err)
	default:
	}

	fix, ok := sp.src.Latest()
	if !ok {
		return nil, ErrNoSample
	}
	return []string{
		formatFloat(fix.Latitude, 7),
		formatFloat(fix.Longitude, 7),
		formatFloat(fix.Height, 2),
		formatFloat(fix.SpeedKnots, 2),
		formatFloat(fix.CourseDeg, 1),
		strconv.Itoa(fix.Satellites),
	}, nil
}

func (sp *spatialSampler) Close() error {
	sp.cancel()
	<-sp.done
	return nil
}
