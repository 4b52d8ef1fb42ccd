/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

// Package mute derives the daemon's mute state from a door switch: a
// debounced two-state machine with an inactivity auto-mute, writing
// through to the ALSA mixer.
package mute

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eepp/cabjovi/internal/telemetry"
)

// Level is the raw binary level of the door switch line. The switch
// shorts the line to ground when the door is closed; a pull-up keeps it
// high when open.
type Level int

const (
	// LevelLow means door closed.
	LevelLow Level = iota
	// LevelHigh means door open.
	LevelHigh
)

func (l Level) String() string {
	if l == LevelLow {
		return "low"
	}
	return "high"
}

// Event is one raw, undebounced level change reported by a sensor.
type Event struct {
	Level Level
	Time  time.Time
}

// Sensor reports the binary level of one input line. Implementations
// need not debounce; the controller does.
type Sensor interface {
	// Level reads the current line level.
	Level() (Level, error)

	// Events delivers raw level-change notifications.
	Events() <-chan Event

	Close() error
}

// Output is the audio-side effect of a mute transition.
type Output interface {
	Mute() error
	Unmute() error
}

// State is the controller's externally visible state.
type State struct {
	Muted          bool
	LastTransition time.Time
	LastActivity   time.Time
}

// ErrSensorClosed is returned by Run when the sensor event stream ends
// unexpectedly.
var ErrSensorClosed = errors.New("sensor event stream closed")

// Controller debounces sensor transitions into a mute state machine.
//
// Debounce is a time-windowed confirmation: each raw edge restarts a
// hold-off timer, and only when the level has been left alone for the
// debounce duration is the line re-read and the stable level applied.
// While unmuted, an inactivity timer re-mutes after AutoMuteDelay with
// no confirmed activity; the timer is disarmed while muted. Unmuting
// within Lockout of the last mute is ignored, because the cabinet door
// itself can bounce back open after a slam.
//
// All writes happen on the Run goroutine; State and Muted are safe to
// call from anywhere.
type Controller struct {
	sensor Sensor
	out    Output
	logger zerolog.Logger

	debounce      time.Duration
	lockout       time.Duration
	autoMuteDelay time.Duration

	now func() time.Time

	mu         sync.Mutex
	state      State
	lastMuteAt time.Time

	changes chan struct{}
}

// Config groups the controller timings.
type Config struct {
	Debounce      time.Duration
	Lockout       time.Duration
	AutoMuteDelay time.Duration
}

// NewController creates a controller in the muted state.
func NewController(sensor Sensor, out Output, cfg Config, logger zerolog.Logger) *Controller {
	c := &Controller{
		sensor:        sensor,
		out:           out,
		logger:        logger.With().Str("component", "mute").Logger(),
		debounce:      cfg.Debounce,
		lockout:       cfg.Lockout,
		autoMuteDelay: cfg.AutoMuteDelay,
		now:           time.Now,
		changes:       make(chan struct{}, 1),
	}
	c.state = State{Muted: true}
	return c
}

// Muted returns the current debounced mute state.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Muted
}

// State returns a snapshot of the full state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Changes delivers a notification after each confirmed transition. The
// channel is buffered; a slow reader coalesces notifications.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// Run processes sensor events until the context is cancelled. The
// controller always starts muted, whatever the door says.
func (c *Controller) Run(ctx context.Context) error {
	now := c.now()
	c.mu.Lock()
	c.state = State{Muted: true, LastTransition: now, LastActivity: now}
	c.lastMuteAt = now
	c.mu.Unlock()
	if err := c.out.Mute(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to mute mixer at startup")
	}

	debounceTimer := newStoppedTimer()
	defer debounceTimer.Stop()
	autoMuteTimer := newStoppedTimer()
	defer autoMuteTimer.Stop()

	pending := false

	c.logger.Info().
		Dur("debounce", c.debounce).
		Dur("lockout", c.lockout).
		Dur("auto_mute_delay", c.autoMuteDelay).
		Msg("mute controller started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("mute controller stopped")
			return ctx.Err()

		case ev, ok := <-c.sensor.Events():
			if !ok {
				return ErrSensorClosed
			}
			// Each raw edge restarts the confirmation window; a level
			// flapping faster than the debounce never confirms.
			pending = true
			c.logger.Debug().Stringer("level", ev.Level).Msg("raw edge")
			resetTimer(debounceTimer, c.debounce)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false

			// The line has been quiet for a full debounce window; read
			// the settled level rather than trusting the last edge.
			level, err := c.sensor.Level()
			if err != nil {
				c.logger.Warn().Err(err).Msg("failed to read stable level")
				continue
			}
			c.confirm(level, autoMuteTimer)

		case <-autoMuteTimer.C:
			c.autoMute()
		}
	}
}

// confirm applies a debounced stable level to the state machine.
func (c *Controller) confirm(level Level, autoMuteTimer *time.Timer) {
	now := c.now()

	c.mu.Lock()
	c.state.LastActivity = now

	switch {
	case level == LevelLow && !c.state.Muted:
		c.state.Muted = true
		c.state.LastTransition = now
		c.lastMuteAt = now
		c.mu.Unlock()

		c.logger.Info().Msg("muting (door closed)")
		autoMuteTimer.Stop()
		c.applyOutput(true)
		c.notify()

	case level == LevelHigh && c.state.Muted:
		if now.Sub(c.lastMuteAt) < c.lockout {
			c.mu.Unlock()
			c.logger.Info().Msg("ignoring unmute (door lockout)")
			return
		}
		c.state.Muted = false
		c.state.LastTransition = now
		c.mu.Unlock()

		c.logger.Info().Msg("unmuting (door open)")
		resetTimer(autoMuteTimer, c.autoMuteDelay)
		c.applyOutput(false)
		c.notify()

	default:
		// Confirmed activity without a transition still counts as
		// activity: re-arm the inactivity timer while unmuted.
		muted := c.state.Muted
		c.mu.Unlock()
		if !muted {
			resetTimer(autoMuteTimer, c.autoMuteDelay)
		}
	}
}

// autoMute handles the inactivity timer firing.
func (c *Controller) autoMute() {
	now := c.now()

	c.mu.Lock()
	if c.state.Muted {
		c.mu.Unlock()
		return
	}
	c.state.Muted = true
	c.state.LastTransition = now
	c.state.LastActivity = now
	c.lastMuteAt = now
	c.mu.Unlock()

	c.logger.Info().Dur("delay", c.autoMuteDelay).Msg("auto-mute triggered")
	c.applyOutput(true)
	c.notify()
}

// applyOutput drives the mixer; failures degrade to logging since the
// director silences playback from the state alone.
func (c *Controller) applyOutput(muted bool) {
	if muted {
		telemetry.MuteTransitionsTotal.WithLabelValues("muted").Inc()
		if err := c.out.Mute(); err != nil {
			c.logger.Error().Err(err).Msg("failed to mute mixer")
		}
		return
	}
	telemetry.MuteTransitionsTotal.WithLabelValues("unmuted").Inc()
	if err := c.out.Unmute(); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmute mixer")
	}
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

// resetTimer restarts a timer owned by the Run goroutine.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
