/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

// Package playback selects tracks, runs the external decoder process
// and drives the poll/decide/act loop tying schedule and mute state to
// the running session.
package playback

import (
	"errors"
	"math/rand"
	"time"
)

// ErrNoTracks indicates the resolved pool has nothing playable. Not
// fatal: the caller plays nothing and retries on the next cycle.
var ErrNoTracks = errors.New("no tracks available")

// Selector picks the next track from a pool, avoiding an immediate
// repeat of the previously played track of the same pool. History is
// in-memory only and scoped to the process lifetime.
//
// Not safe for concurrent use; the director is the single caller.
type Selector struct {
	rng  *rand.Rand
	last map[string]string
}

// NewSelector creates a selector seeded from the current time.
// Uniformity is the only requirement here, not unpredictability.
func NewSelector() *Selector {
	return &Selector{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		last: make(map[string]string),
	}
}

// Next returns a uniformly random track from tracks, excluding the
// last pick for this pool when there is a choice. A singleton pool
// always returns its one track.
func (s *Selector) Next(poolName string, tracks []string) (string, error) {
	if len(tracks) == 0 {
		return "", ErrNoTracks
	}

	if len(tracks) == 1 {
		s.last[poolName] = tracks[0]
		return tracks[0], nil
	}

	candidates := tracks
	if last := s.last[poolName]; last != "" {
		filtered := make([]string, 0, len(tracks))
		for _, track := range tracks {
			if track != last {
				filtered = append(filtered, track)
			}
		}
		// The last-played file may have been deleted since, leaving
		// the full list intact.
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	pick := candidates[s.rng.Intn(len(candidates))]
	s.last[poolName] = pick
	return pick, nil
}
