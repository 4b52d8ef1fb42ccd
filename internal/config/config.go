/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config covers process level configuration. Values come from defaults,
// then an optional YAML file, then CABJOVI_* environment variables, then
// command line flags (cmd/cabjovi applies those last).
type Config struct {
	Environment string `yaml:"environment"`

	// BaseDir is the directory holding the time-scheduled music
	// directories. Required.
	BaseDir string `yaml:"base_dir"`

	AlsaCard  string `yaml:"alsa_card"`
	AlsaMixer string `yaml:"alsa_mixer"`

	// AlsaDevice is the playback device handed to the decoder
	// (mpg123 -a), e.g. "default" or "hw:1,0".
	AlsaDevice string `yaml:"alsa_device"`

	GPIOChip string `yaml:"gpio_chip"`
	GPIOPin  int    `yaml:"gpio_pin"`

	// SwitchDebounce is how long the door switch level must hold steady
	// before a transition is accepted.
	SwitchDebounce time.Duration `yaml:"switch_debounce"`

	// DoorLockout suppresses unmuting for this long after a mute; the
	// cabinet door can bounce back open when slammed.
	DoorLockout time.Duration `yaml:"door_lockout"`

	AutoMuteDelay time.Duration `yaml:"auto_mute_delay"`
	PollInterval  time.Duration `yaml:"poll_interval"`

	Mpg123Bin string `yaml:"mpg123_bin"`

	// MetricsBind exposes Prometheus metrics when non-empty
	// (e.g. "127.0.0.1:9100"). Empty disables the listener.
	MetricsBind string `yaml:"metrics_bind"`
}

// Load reads environment variables over built-in defaults.
func Load() *Config {
	return &Config{
		Environment:    getEnv("CABJOVI_ENV", "production"),
		BaseDir:        getEnv("CABJOVI_BASE_DIR", ""),
		AlsaCard:       getEnv("CABJOVI_ALSA_CARD", "default"),
		AlsaMixer:      getEnv("CABJOVI_ALSA_MIXER", "default"),
		AlsaDevice:     getEnv("CABJOVI_ALSA_DEVICE", "default"),
		GPIOChip:       getEnv("CABJOVI_GPIO_CHIP", "gpiochip0"),
		GPIOPin:        getEnvInt("CABJOVI_GPIO_PIN", 3),
		SwitchDebounce: getEnvDuration("CABJOVI_SWITCH_DEBOUNCE", 50*time.Millisecond),
		DoorLockout:    getEnvDuration("CABJOVI_DOOR_LOCKOUT", time.Second),
		AutoMuteDelay:  getEnvDuration("CABJOVI_AUTO_MUTE_DELAY", 5*time.Minute),
		PollInterval:   getEnvDuration("CABJOVI_POLL_INTERVAL", 10*time.Second),
		Mpg123Bin:      getEnv("CABJOVI_MPG123_BIN", "mpg123"),
		MetricsBind:    getEnv("CABJOVI_METRICS_BIND", ""),
	}
}

// ApplyFile merges a YAML configuration file over the receiver. Only keys
// present in the file are touched.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

// Validate checks the final configuration. Failures here are fatal: the
// daemon must not start in an undefined state.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base directory must be provided")
	}

	info, err := os.Stat(c.BaseDir)
	if err != nil {
		return fmt.Errorf("base directory %s: %w", c.BaseDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("base directory %s is not a directory", c.BaseDir)
	}

	if c.GPIOPin < 0 {
		return fmt.Errorf("GPIO pin must be >= 0, got %d", c.GPIOPin)
	}

	if c.SwitchDebounce <= 0 {
		return fmt.Errorf("switch debounce must be positive, got %s", c.SwitchDebounce)
	}
	if c.DoorLockout < 0 {
		return fmt.Errorf("door lockout must be >= 0, got %s", c.DoorLockout)
	}
	if c.AutoMuteDelay <= 0 {
		return fmt.Errorf("auto-mute delay must be positive, got %s", c.AutoMuteDelay)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}

	if c.Mpg123Bin == "" {
		return fmt.Errorf("mpg123 binary must be provided")
	}
	if c.AlsaDevice == "" {
		return fmt.Errorf("ALSA playback device must be provided")
	}

	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration parses a Go duration string (e.g. "50ms", "5m"). Bare
// numbers are taken as seconds, matching the historical CLI options.
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return def
}
