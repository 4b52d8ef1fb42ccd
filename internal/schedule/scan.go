/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pool is the set of playable files behind one schedule entry or the
// default fallback.
type Pool struct {
	// Name is the directory name; identity of the pool.
	Name string

	// Dir is the pool directory path.
	Dir string

	// Range is the parsed schedule entry. Meaningless when IsDefault.
	Range TimeRange

	// IsDefault marks the literal "default" fallback pool.
	IsDefault bool
}

// Tracks lists the playable files in the pool directory, sorted
// case-insensitively by name. Every regular file is a candidate;
// symbolic links are followed. Subdirectories and anything else are
// skipped.
func (p Pool) Tracks() ([]string, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, fmt.Errorf("list pool %s: %w", p.Name, err)
	}

	var tracks []string
	for _, entry := range entries {
		path := filepath.Join(p.Dir, entry.Name())

		// Stat (not Lstat) so symlinked tracks count.
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		tracks = append(tracks, path)
	}

	sort.Slice(tracks, func(i, j int) bool {
		return strings.ToLower(filepath.Base(tracks[i])) < strings.ToLower(filepath.Base(tracks[j]))
	})
	return tracks, nil
}

// Library scans a base directory into the current pool set. There is no
// caching: every Scan reflects the file system as it is right now, so
// schedule edits take effect on the next polling cycle.
type Library struct {
	baseDir string
}

// NewLibrary creates a library over the given base directory.
func NewLibrary(baseDir string) *Library {
	return &Library{baseDir: baseDir}
}

// Scan rebuilds the pool set from the base directory. Entries that are
// not directories, and directory names that are neither schedule
// entries nor "default", are silently skipped.
func (l *Library) Scan() ([]Pool, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan base directory %s: %w", l.baseDir, err)
	}

	var pools []Pool
	for _, entry := range entries {
		path := filepath.Join(l.baseDir, entry.Name())

		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}

		if entry.Name() == DefaultName {
			pools = append(pools, Pool{Name: DefaultName, Dir: path, IsDefault: true})
			continue
		}

		timeRange, ok := ParseEntryName(entry.Name())
		if !ok {
			continue
		}

		pools = append(pools, Pool{Name: entry.Name(), Dir: path, Range: timeRange})
	}

	return pools, nil
}
