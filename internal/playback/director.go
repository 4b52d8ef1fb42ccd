/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package playback

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/eepp/cabjovi/internal/schedule"
	"github.com/eepp/cabjovi/internal/telemetry"
)

// MuteReader is the director's read-only view of the mute controller.
type MuteReader interface {
	// Muted returns the current debounced mute state.
	Muted() bool

	// Changes delivers a notification after each confirmed transition.
	Changes() <-chan struct{}
}

// Director runs the main coordination loop: on every cycle it rescans
// the base directory, resolves the active pool, reads the mute state
// and keeps, switches or silences playback accordingly. It wakes early
// on track completion and on mute changes so reactions are not bounded
// by the polling interval.
type Director struct {
	lib      *schedule.Library
	selector *Selector
	player   Player
	mute     MuteReader
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	// Owned by the Run goroutine; no locking needed.
	session  Session
	poolName string
}

// NewDirector creates the coordination loop.
func NewDirector(lib *schedule.Library, player Player, mute MuteReader, interval time.Duration, logger zerolog.Logger) *Director {
	return &Director{
		lib:      lib,
		selector: NewSelector(),
		player:   player,
		mute:     mute,
		interval: interval,
		logger:   logger.With().Str("component", "director").Logger(),
		now:      time.Now,
	}
}

// Run executes the loop until the context is cancelled, then stops any
// in-flight session.
func (d *Director) Run(ctx context.Context) error {
	d.logger.Info().Dur("poll_interval", d.interval).Msg("playback director started")

	timer := time.NewTimer(0) // immediate first cycle
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.stopSession("shutdown")
			d.logger.Info().Msg("playback director stopped")
			return ctx.Err()
		case <-timer.C:
		case <-d.sessionDone():
			// Natural end of track: re-enter immediately to minimize
			// the gap between tracks.
		case <-d.mute.Changes():
		}

		d.tick(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.interval)
	}
}

// sessionDone returns the live session's completion channel, or a nil
// channel (blocks forever) when there is none.
func (d *Director) sessionDone() <-chan struct{} {
	if d.session == nil {
		return nil
	}
	return d.session.Done()
}

func (d *Director) tick(ctx context.Context) {
	telemetry.PollTicksTotal.Inc()

	pools, err := d.lib.Scan()
	if err != nil {
		// Base directory gone or unreadable; degrade to silence and
		// retry next cycle.
		d.logger.Error().Err(err).Msg("schedule scan failed")
		d.stopSession("scan failure")
		return
	}

	pool, ok := schedule.Resolve(pools, d.now())

	if d.mute.Muted() {
		d.stopSession("muted")
		return
	}

	if !ok {
		telemetry.ActivePoolTracks.Set(0)
		d.stopSession("no active pool")
		return
	}

	if d.session != nil {
		if pool.Name != d.poolName {
			d.logger.Info().Str("from", d.poolName).Str("to", pool.Name).Msg("active pool changed")
			d.stopSession("pool change")
		} else {
			select {
			case <-d.session.Done():
				d.reapSession()
			default:
				// Same pool, still playing.
				return
			}
		}
	}

	d.startNext(ctx, pool)
}

// startNext selects a track from the pool and starts playback. Any
// failure leaves the director silent until the next cycle.
func (d *Director) startNext(ctx context.Context, pool schedule.Pool) {
	tracks, err := pool.Tracks()
	if err != nil {
		d.logger.Error().Err(err).Str("pool", pool.Name).Msg("failed to list pool")
		telemetry.ActivePoolTracks.Set(0)
		return
	}
	telemetry.ActivePoolTracks.Set(float64(len(tracks)))

	track, err := d.selector.Next(pool.Name, tracks)
	if err != nil {
		if errors.Is(err, ErrNoTracks) {
			d.logger.Info().Str("pool", pool.Name).Msg("active pool has no tracks")
		}
		return
	}

	session, err := d.player.Start(ctx, track)
	if err != nil {
		d.logger.Error().Err(err).Str("track", filepath.Base(track)).Msg("failed to start playback")
		telemetry.PlaybackFailuresTotal.Inc()
		return
	}

	telemetry.TracksStartedTotal.Inc()
	d.session = session
	d.poolName = pool.Name
	d.logger.Info().Str("pool", pool.Name).Str("track", filepath.Base(track)).Msg("playing")
}

// stopSession forcibly ends the current session, if any. Safe to call
// when nothing is playing.
func (d *Director) stopSession(reason string) {
	if d.session == nil {
		return
	}

	select {
	case <-d.session.Done():
		// Finished on its own; just account for it.
		d.reapSession()
		return
	default:
	}

	d.logger.Info().Str("reason", reason).Str("track", filepath.Base(d.session.Path())).Msg("stopping playback")
	d.session.Stop()
	telemetry.PlaybackStopsTotal.Inc()
	d.session = nil
	d.poolName = ""
}

// reapSession clears a session that has already ended and records its
// outcome. A mid-track decoder failure is recovered here: the session
// is treated as finished and the loop decides afresh.
func (d *Director) reapSession() {
	if err := d.session.Err(); err != nil && !errors.Is(err, ErrStopped) {
		d.logger.Warn().Err(err).Str("track", filepath.Base(d.session.Path())).Msg("playback failed")
		telemetry.PlaybackFailuresTotal.Inc()
	}
	d.session = nil
}
