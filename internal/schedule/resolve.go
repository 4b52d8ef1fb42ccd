/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package schedule

import "time"

// Resolve picks the active pool for the given instant. Among matching
// ranges the narrowest (smallest cyclic width) wins, so a more specific
// entry beats a broad one; equal widths are broken by lexicographically
// smallest name for deterministic selection. When no range matches, the
// "default" pool is the fallback. The second return value is false when
// there is nothing to play.
//
// Pure function of its inputs: resolving the same pool set at the same
// instant always yields the same answer.
func Resolve(pools []Pool, now time.Time) (Pool, bool) {
	minute := MinuteOfWeek(now)

	var (
		best       Pool
		bestFound  bool
		defaultOne Pool
		hasDefault bool
	)

	for _, pool := range pools {
		if pool.IsDefault {
			defaultOne = pool
			hasDefault = true
			continue
		}

		if !pool.Range.Contains(minute) {
			continue
		}

		if !bestFound {
			best = pool
			bestFound = true
			continue
		}

		width, bestWidth := effectiveWidth(pool.Range), effectiveWidth(best.Range)
		if width < bestWidth || (width == bestWidth && pool.Name < best.Name) {
			best = pool
		}
	}

	if bestFound {
		return best, true
	}
	if hasDefault {
		return defaultOne, true
	}
	return Pool{}, false
}

// effectiveWidth orders ranges by specificity. A zero-width range spans
// the entire week, so it must lose to any proper range.
func effectiveWidth(r TimeRange) int {
	if w := r.Width(); w != 0 {
		return w
	}
	return MinutesPerWeek
}
