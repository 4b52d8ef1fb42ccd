/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

// Package schedule maps wall-clock time onto a base directory of
// week-cyclic schedule entries and picks the active pool of tracks.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerWeek is the size of the canonical week grid (7 * 24 * 60).
const MinutesPerWeek = 7 * 24 * 60

// DefaultName is the literal directory name of the fallback pool.
const DefaultName = "default"

var dayToNum = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

var entryNamePattern = regexp.MustCompile(
	`^(mon|tue|wed|thu|fri|sat|sun)-(\d{1,2}):(mon|tue|wed|thu|fri|sat|sun)-(\d{1,2})$`)

// TimeRange is one named schedule entry: a cyclic range over the week,
// from StartDay/StartHour inclusive to EndDay/EndHour exclusive.
// Days are Monday-based (mon=0 .. sun=6), hours are 0-23.
type TimeRange struct {
	StartDay  int
	StartHour int
	EndDay    int
	EndHour   int
}

// ParseEntryName parses a directory name of the form DAY-HOUR:DAY-HOUR
// (e.g. "mon-7:fri-22"). The second return value is false when the name
// is not a schedule entry; that is not an error, such names are simply
// ignored by the scheduler.
func ParseEntryName(name string) (TimeRange, bool) {
	match := entryNamePattern.FindStringSubmatch(strings.ToLower(name))
	if match == nil {
		return TimeRange{}, false
	}

	startHour, err := strconv.Atoi(match[2])
	if err != nil || startHour > 23 {
		return TimeRange{}, false
	}
	endHour, err := strconv.Atoi(match[4])
	if err != nil || endHour > 23 {
		return TimeRange{}, false
	}

	return TimeRange{
		StartDay:  dayToNum[match[1]],
		StartHour: startHour,
		EndDay:    dayToNum[match[3]],
		EndHour:   endHour,
	}, true
}

// StartMinute returns the range start as a minute-of-week offset.
func (r TimeRange) StartMinute() int {
	return r.StartDay*24*60 + r.StartHour*60
}

// EndMinute returns the range end as a minute-of-week offset.
func (r TimeRange) EndMinute() int {
	return r.EndDay*24*60 + r.EndHour*60
}

// Width returns the cyclic distance from start to end in minutes, in
// [0, MinutesPerWeek). A width of 0 (start == end) means the range
// covers the entire week.
func (r TimeRange) Width() int {
	return ((r.EndMinute()-r.StartMinute())%MinutesPerWeek + MinutesPerWeek) % MinutesPerWeek
}

// Contains reports whether the given minute-of-week falls inside the
// range. Wraparound ranges (e.g. fri-18:mon-6) are handled by the
// cyclic distance check; a zero-width range matches every instant.
func (r TimeRange) Contains(minuteOfWeek int) bool {
	width := r.Width()
	if width == 0 {
		return true
	}

	dist := ((minuteOfWeek-r.StartMinute())%MinutesPerWeek + MinutesPerWeek) % MinutesPerWeek
	return dist < width
}

// MinuteOfWeek maps a wall-clock instant onto the Monday-based week
// grid in the instant's own location.
func MinuteOfWeek(t time.Time) int {
	day := (int(t.Weekday()) + 6) % 7 // time.Weekday is Sunday-based
	return day*24*60 + t.Hour()*60 + t.Minute()
}
