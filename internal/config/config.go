// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/ini.v1"
)

// DefaultPath is where the logger looks for its configuration.
const DefaultPath = "./bird_logger.conf"

// Config holds all application configuration values. Everything is fixed
// at process start.
type Config struct {
	// GPIO (periph names, e.g. "GPIO20")
	ButtonPin string
	LEDPin    string

	// Session
	SampleIntervalMS int
	MaxDurationS     int // 0 = unbounded

	// Storage
	StoragePath     string // mount point of the USB medium
	StorageRequired bool   // strict preflight: storage and serial must both be present
	FallbackPath    string // relaxed preflight: used when storage is missing

	// Spatial unit
	SerialPort         string
	SerialBaudRate     int
	SatelliteThreshold int

	// Timing
	LockTimeoutS  int
	LockPollMS    int
	SettleDelayMS int
	GracePeriodMS int
	CooldownMS    int

	// Button
	StartMaxHoldMS int
	ShutdownHoldMS int
	RebootHoldMS   int
	ButtonPollMS   int
	IdlePollMS     int

	RebootCommand string

	// Camera
	CameraCommand string
	CameraQuality int

	// ADC
	ADCI2CBus    string
	ADCI2CAddr   uint16
	ADCChannels  []int
	ADCFullScale int // millivolts

	// MQTT (optional)
	MQTTBroker      string
	MQTTClientID    string
	TopicStatus     string
	TopicSatellites string

	// Status OLED (address 0 disables; the SSD1306 driver only talks to 0x3C)
	DisplayI2CBus  string
	DisplayI2CAddr uint16

	// Status web page (0 disables)
	StatusWebPort int

	// Session journal (empty disables)
	JournalPath string
}

// Package-level unexported variables for the singleton: InitGlobal sets
// globalConfig once, Get reads it under configMu.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the field defaults.
func Default() *Config {
	return &Config{
		ButtonPin:          "GPIO20",
		LEDPin:             "GPIO21",
		SampleIntervalMS:   1000,
		MaxDurationS:       0,
		StoragePath:        "/media/bird/LOGGER1",
		StorageRequired:    true,
		FallbackPath:       "/home/bird/Desktop",
		SerialPort:         "/dev/ttyUSB0",
		SerialBaudRate:     460800,
		SatelliteThreshold: 5,
		LockTimeoutS:       30,
		LockPollMS:         100,
		SettleDelayMS:      2000,
		GracePeriodMS:      5000,
		CooldownMS:         5000,
		StartMaxHoldMS:     1500,
		ShutdownHoldMS:     3000,
		RebootHoldMS:       10000,
		ButtonPollMS:       10,
		IdlePollMS:         100,
		RebootCommand:      "sudo reboot",
		CameraCommand:      "rpicam-still",
		CameraQuality:      85,
		ADCI2CBus:          "",
		ADCI2CAddr:         0x48,
		ADCChannels:        []int{0, 1, 2},
		ADCFullScale:       4096,
		MQTTClientID:       "bird-logger",
		TopicStatus:        "bird/status",
		TopicSatellites:    "bird/gps/satellites",
		StatusWebPort:      0,
		JournalPath:        "",
	}
}

// Load reads the configuration file on top of the defaults. The file holds
// KEY=VALUE lines; '#' starts a comment.
func Load(configPath string) (*Config, error) {
	file, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := Default()
	for _, key := range file.Section(ini.DefaultSection).Keys() {
		if err := cfg.setValue(key.Name(), strings.TrimSpace(key.String())); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// GPIO
	case "BUTTON_PIN":
		c.ButtonPin = value
	case "LED_PIN":
		c.LEDPin = value

	// Session
	case "SAMPLE_INTERVAL_MS":
		c.SampleIntervalMS, err = atoi(key, value)
	case "MAX_DURATION_S":
		c.MaxDurationS, err = atoi(key, value)

	// Storage
	case "STORAGE_PATH":
		c.StoragePath = value
	case "STORAGE_REQUIRED":
		c.StorageRequired, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	case "FALLBACK_PATH":
		c.FallbackPath = value

	// Spatial unit
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = atoi(key, value)
	case "SATELLITE_THRESHOLD":
		c.SatelliteThreshold, err = atoi(key, value)

	// Timing
	case "LOCK_TIMEOUT_S":
		c.LockTimeoutS, err = atoi(key, value)
	case "LOCK_POLL_MS":
		c.LockPollMS, err = atoi(key, value)
	case "SETTLE_DELAY_MS":
		c.SettleDelayMS, err = atoi(key, value)
	case "GRACE_PERIOD_MS":
		c.GracePeriodMS, err = atoi(key, value)
	case "COOLDOWN_MS":
		c.CooldownMS, err = atoi(key, value)

	// Button
	case "START_MAX_HOLD_MS":
		c.StartMaxHoldMS, err = atoi(key, value)
	case "SHUTDOWN_HOLD_MS":
		c.ShutdownHoldMS, err = atoi(key, value)
	case "REBOOT_HOLD_MS":
		c.RebootHoldMS, err = atoi(key, value)
	case "BUTTON_POLL_MS":
		c.ButtonPollMS, err = atoi(key, value)
	case "IDLE_POLL_MS":
		c.IdlePollMS, err = atoi(key, value)

	case "REBOOT_COMMAND":
		c.RebootCommand = value

	// Camera
	case "CAMERA_COMMAND":
		c.CameraCommand = value
	case "CAMERA_QUALITY":
		c.CameraQuality, err = atoi(key, value)
		if err == nil && (c.CameraQuality < 1 || c.CameraQuality > 100) {
			err = fmt.Errorf("CAMERA_QUALITY must be 1-100, got %d", c.CameraQuality)
		}

	// ADC
	case "ADC_I2C_BUS":
		c.ADCI2CBus = value
	case "ADC_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid ADC_I2C_ADDR %q: %w", value, perr)
		}
		c.ADCI2CAddr = uint16(addr)
	case "ADC_CHANNELS":
		c.ADCChannels, err = parseChannels(value)
	case "ADC_FULL_SCALE_MV":
		c.ADCFullScale, err = atoi(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_SATELLITES":
		c.TopicSatellites = value

	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)

	case "STATUS_WEB_PORT":
		c.StatusWebPort, err = atoi(key, value)
	case "JOURNAL_PATH":
		c.JournalPath = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func atoi(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// parseChannels parses a comma separated list of ADS1115 inputs (0-3).
func parseChannels(value string) ([]int, error) {
	var chans []int
	for _, f := range strings.Split(value, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		ch, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid ADC_CHANNELS entry %q: %w", f, err)
		}
		if ch < 0 || ch > 3 {
			return nil, fmt.Errorf("ADC_CHANNELS entries must be 0-3, got %d", ch)
		}
		chans = append(chans, ch)
	}
	return chans, nil
}

// DisplayAddr is the only SSD1306 address the I2C driver supports.
const DisplayAddr = 0x3C

// validate checks required fields and ranges.
func (c *Config) validate() error {
	if c.ButtonPin == "" {
		return fmt.Errorf("BUTTON_PIN is required")
	}
	if c.LEDPin == "" {
		return fmt.Errorf("LED_PIN is required")
	}
	if c.SampleIntervalMS <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL_MS must be positive")
	}
	if c.MaxDurationS < 0 {
		return fmt.Errorf("MAX_DURATION_S must not be negative")
	}
	if c.StoragePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if !c.StorageRequired && c.FallbackPath == "" {
		return fmt.Errorf("FALLBACK_PATH is required when STORAGE_REQUIRED is false")
	}
	if c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required")
	}
	if c.SerialBaudRate <= 0 {
		return fmt.Errorf("SERIAL_BAUD_RATE must be positive")
	}
	if c.SatelliteThreshold <= 0 {
		return fmt.Errorf("SATELLITE_THRESHOLD must be positive")
	}
	if c.LockTimeoutS <= 0 || c.LockPollMS <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT_S and LOCK_POLL_MS must be positive")
	}
	if c.ButtonPollMS <= 0 || c.IdlePollMS <= 0 {
		return fmt.Errorf("BUTTON_POLL_MS and IDLE_POLL_MS must be positive")
	}
	if c.DisplayI2CAddr != 0 && c.DisplayI2CAddr != DisplayAddr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0 (off) or 0x%02X, got 0x%02X", DisplayAddr, c.DisplayI2CAddr)
	}
	if !(c.StartMaxHoldMS <= c.ShutdownHoldMS && c.ShutdownHoldMS < c.RebootHoldMS) {
		return fmt.Errorf("hold thresholds must satisfy START_MAX_HOLD_MS <= SHUTDOWN_HOLD_MS < REBOOT_HOLD_MS")
	}
	if len(c.ADCChannels) == 0 {
		return fmt.Errorf("ADC_CHANNELS must list at least one channel")
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) SampleInterval() time.Duration { return ms(c.SampleIntervalMS) }
func (c *Config) MaxDuration() time.Duration    { return time.Duration(c.MaxDurationS) * time.Second }
func (c *Config) LockTimeout() time.Duration    { return time.Duration(c.LockTimeoutS) * time.Second }
func (c *Config) LockPoll() time.Duration       { return ms(c.LockPollMS) }
func (c *Config) SettleDelay() time.Duration    { return ms(c.SettleDelayMS) }
func (c *Config) GracePeriod() time.Duration    { return ms(c.GracePeriodMS) }
func (c *Config) Cooldown() time.Duration       { return ms(c.CooldownMS) }
func (c *Config) StartMaxHold() time.Duration   { return ms(c.StartMaxHoldMS) }
func (c *Config) ShutdownHold() time.Duration   { return ms(c.ShutdownHoldMS) }
func (c *Config) RebootHold() time.Duration     { return ms(c.RebootHoldMS) }
func (c *Config) ButtonPoll() time.Duration     { return ms(c.ButtonPollMS) }
func (c *Config) IdlePoll() time.Duration       { return ms(c.IdlePollMS) }

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
