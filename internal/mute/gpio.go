/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package mute

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/warthog618/go-gpiocdev"
)

// GPIOSensor reads the door switch from a GPIO character device. The
// line is requested with an internal pull-up and both-edge detection,
// so the switch just shorts the pin to ground.
type GPIOSensor struct {
	line   *gpiocdev.Line
	events chan Event
}

// NewGPIOSensor requests the line. A failed request is a fatal
// configuration error for the daemon.
func NewGPIOSensor(chip string, pin int, logger zerolog.Logger) (*GPIOSensor, error) {
	s := &GPIOSensor{events: make(chan Event, 16)}
	chip = strings.TrimPrefix(chip, "/dev/")

	logger.Info().Str("chip", chip).Int("pin", pin).Msg("requesting GPIO line")

	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("cabjovi"),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			level := LevelLow
			if evt.Type == gpiocdev.LineEventRisingEdge {
				level = LevelHigh
			}
			select {
			case s.events <- Event{Level: level, Time: time.Now()}:
			default:
				// Dropping raw edges is fine: the controller re-reads
				// the settled level after the debounce window.
			}
		}))
	if err != nil {
		return nil, fmt.Errorf("request GPIO line %d on %s: %w", pin, chip, err)
	}

	s.line = line
	return s, nil
}

// Level reads the current line level.
func (s *GPIOSensor) Level() (Level, error) {
	v, err := s.line.Value()
	if err != nil {
		return LevelLow, fmt.Errorf("read GPIO line: %w", err)
	}
	if v == 0 {
		return LevelLow, nil
	}
	return LevelHigh, nil
}

// Events delivers raw edge notifications.
func (s *GPIOSensor) Events() <-chan Event {
	return s.events
}

// Close releases the line.
func (s *GPIOSensor) Close() error {
	return s.line.Close()
}
