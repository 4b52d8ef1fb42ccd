/*
Copyright (C) 2026 Philippe Proulx <eepp.ca>

SPDX-License-Identifier: MIT
*/

package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ErrStopped is reported by Session.Err after a forced Stop, so callers
// can tell termination apart from natural end-of-track.
var ErrStopped = errors.New("playback stopped")

// Session is one in-flight playback operation. At most one session is
// live at any time; the director owns that invariant.
type Session interface {
	// Path returns the file being played.
	Path() string

	// StartedAt returns when playback started.
	StartedAt() time.Time

	// Done is closed once the underlying operation has ended, whether
	// naturally or by force.
	Done() <-chan struct{}

	// Err reports the outcome after Done is closed: nil for natural
	// completion, ErrStopped after a forced Stop, the process error
	// otherwise. Returns nil while still running.
	Err() error

	// Stop forcibly terminates the operation. Idempotent; safe to call
	// after completion. Blocks until the underlying process is gone.
	Stop()
}

// Player starts playback of a single file.
type Player interface {
	Start(ctx context.Context, path string) (Session, error)
}

// stopGrace is how long Stop waits after SIGTERM before killing the
// decoder outright.
const stopGrace = 2 * time.Second

// MPG123 plays files through an mpg123 subprocess writing to an ALSA
// device.
type MPG123 struct {
	bin    string
	device string
	logger zerolog.Logger
}

// NewMPG123 creates a player invoking bin with ALSA output device.
func NewMPG123(bin, device string, logger zerolog.Logger) *MPG123 {
	return &MPG123{
		bin:    bin,
		device: device,
		logger: logger.With().Str("component", "player").Logger(),
	}
}

func (p *MPG123) argv(path string) []string {
	return []string{p.bin, "-q", "-a", p.device, path}
}

// Start launches the decoder for the given file. The returned session
// ends when the process exits; cancelling ctx kills the process.
func (p *MPG123) Start(ctx context.Context, path string) (Session, error) {
	argv := p.argv(path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// stdio deliberately left nil: the decoder inherits /dev/null.

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.bin, err)
	}

	s := &processSession{
		path:      path,
		startedAt: time.Now(),
		cmd:       cmd,
		done:      make(chan struct{}),
	}

	p.logger.Info().Str("track", filepath.Base(path)).Int("pid", cmd.Process.Pid).Msg("decoder started")

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.waitErr = err
		s.mu.Unlock()
		close(s.done)

		if err != nil && !s.stopped.Load() {
			p.logger.Warn().Err(err).Str("track", filepath.Base(path)).Msg("decoder exited with error")
		} else {
			p.logger.Debug().Str("track", filepath.Base(path)).Msg("decoder exited")
		}
	}()

	return s, nil
}

type processSession struct {
	path      string
	startedAt time.Time
	cmd       *exec.Cmd
	done      chan struct{}
	stopped   atomic.Bool

	mu      sync.Mutex
	waitErr error
}

func (s *processSession) Path() string          { return s.path }
func (s *processSession) StartedAt() time.Time  { return s.startedAt }
func (s *processSession) Done() <-chan struct{} { return s.done }

func (s *processSession) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}

	if s.stopped.Load() {
		return ErrStopped
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

func (s *processSession) Stop() {
	select {
	case <-s.done:
		// Already finished naturally; keep the natural outcome.
		return
	default:
	}

	s.stopped.Store(true)

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-s.done:
	case <-time.After(stopGrace):
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-s.done
	}
}
