/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

// Package telemetry defines the daemon's Prometheus collectors. The
// /metrics listener only binds when configured; collectors are cheap to
// update either way.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollTicksTotal counts playback director polling cycles.
	PollTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cabjovi_poll_ticks_total",
		Help: "Number of schedule polling cycles executed.",
	})

	// TracksStartedTotal counts tracks handed to the player.
	TracksStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cabjovi_tracks_started_total",
		Help: "Number of tracks started.",
	})

	// PlaybackFailuresTotal counts player start failures and tracks
	// that exited with an error.
	PlaybackFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cabjovi_playback_failures_total",
		Help: "Number of playback failures.",
	})

	// PlaybackStopsTotal counts forced session terminations.
	PlaybackStopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cabjovi_playback_stops_total",
		Help: "Number of forcibly stopped playback sessions.",
	})

	// MuteTransitionsTotal counts confirmed mute state transitions by
	// resulting state ("muted" or "unmuted").
	MuteTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabjovi_mute_transitions_total",
		Help: "Number of confirmed mute state transitions.",
	}, []string{"state"})

	// ActivePoolTracks reports the track count of the most recently
	// resolved pool (0 when nothing resolves).
	ActivePoolTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cabjovi_active_pool_tracks",
		Help: "Track count of the currently active pool.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
