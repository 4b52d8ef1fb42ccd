/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package mute

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// AlsaMixer mutes and unmutes an ALSA mixer control through amixer.
type AlsaMixer struct {
	card    string
	control string
	bin     string
	logger  zerolog.Logger
}

// NewAlsaMixer creates a mixer for the given card and control names.
func NewAlsaMixer(card, control string, logger zerolog.Logger) *AlsaMixer {
	return &AlsaMixer{
		card:    card,
		control: control,
		bin:     "amixer",
		logger:  logger.With().Str("component", "mixer").Logger(),
	}
}

// Probe verifies the mixer control is usable. Called at startup; a
// failure here is fatal.
func (m *AlsaMixer) Probe() error {
	args := append(m.cardArgs(), "sget", m.control)
	if out, err := exec.Command(m.bin, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("probe mixer control %q: %w (%s)", m.control, err, bytes.TrimSpace(out))
	}
	m.logger.Info().Str("card", m.card).Str("control", m.control).Msg("mixer control available")
	return nil
}

// Mute switches the control off.
func (m *AlsaMixer) Mute() error {
	return m.set("mute")
}

// Unmute switches the control back on.
func (m *AlsaMixer) Unmute() error {
	return m.set("unmute")
}

func (m *AlsaMixer) set(verb string) error {
	args := append(m.cardArgs(), "sset", m.control, verb)
	if out, err := exec.Command(m.bin, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("amixer %s: %w (%s)", verb, err, bytes.TrimSpace(out))
	}
	m.logger.Debug().Str("verb", verb).Msg("mixer updated")
	return nil
}

func (m *AlsaMixer) cardArgs() []string {
	// amixer targets the default device when no card is named.
	if m.card == "" || m.card == "default" {
		return nil
	}
	return []string{"-c", m.card}
}

// NopOutput discards mute operations; useful when no mixer control is
// wanted and in tests.
type NopOutput struct{}

func (NopOutput) Mute() error   { return nil }
func (NopOutput) Unmute() error { return nil }
