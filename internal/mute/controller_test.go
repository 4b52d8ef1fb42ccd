package mute

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeSensor struct {
	mu     sync.Mutex
	level  Level
	events chan Event
}

func newFakeSensor(level Level) *fakeSensor {
	return &fakeSensor{level: level, events: make(chan Event, 64)}
}

func (s *fakeSensor) set(level Level) {
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
	s.events <- Event{Level: level, Time: time.Now()}
}

func (s *fakeSensor) Level() (Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, nil
}

func (s *fakeSensor) Events() <-chan Event { return s.events }
func (s *fakeSensor) Close() error         { return nil }

type recordingOutput struct {
	mu      sync.Mutex
	mutes   int
	unmutes int
}

func (o *recordingOutput) Mute() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mutes++
	return nil
}

func (o *recordingOutput) Unmute() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unmutes++
	return nil
}

func (o *recordingOutput) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mutes, o.unmutes
}

func startController(t *testing.T, sensor Sensor, out Output, cfg Config) *Controller {
	t.Helper()
	c := NewController(sensor, out, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestStartsMuted(t *testing.T) {
	sensor := newFakeSensor(LevelHigh) // door open at startup
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      10 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	if !c.Muted() {
		t.Fatal("controller must start muted")
	}
	if !waitFor(t, time.Second, func() bool { m, _ := out.counts(); return m >= 1 }) {
		t.Fatal("expected mixer muted at startup")
	}
}

func TestDebouncedUnmute(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      10 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute after debounce window")
	}

	// A held level produces exactly one transition.
	time.Sleep(50 * time.Millisecond)
	if _, unmutes := out.counts(); unmutes != 1 {
		t.Fatalf("expected exactly one unmute, got %d", unmutes)
	}
}

func TestFlappingShorterThanDebounceIgnored(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      40 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	// Mechanical bounce: the level never holds for the debounce window
	// and settles back at low.
	for i := 0; i < 5; i++ {
		sensor.set(LevelHigh)
		time.Sleep(5 * time.Millisecond)
		sensor.set(LevelLow)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if !c.Muted() {
		t.Fatal("flapping must not unmute")
	}
	if _, unmutes := out.counts(); unmutes != 0 {
		t.Fatalf("expected no unmute during bounce, got %d", unmutes)
	}
}

func TestDebouncedRemute(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      10 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute")
	}

	sensor.set(LevelLow)
	if !waitFor(t, time.Second, c.Muted) {
		t.Fatal("expected mute after door closes")
	}
}

func TestUnmuteLockout(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      5 * time.Millisecond,
		Lockout:       150 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	// Wait out the startup lockout (Run records a mute at startup).
	time.Sleep(200 * time.Millisecond)

	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute")
	}

	// Door slams shut, then bounces back open immediately: the reopen
	// falls inside the lockout and must be ignored.
	sensor.set(LevelLow)
	if !waitFor(t, time.Second, c.Muted) {
		t.Fatal("expected mute")
	}
	sensor.set(LevelHigh)
	time.Sleep(50 * time.Millisecond)
	if !c.Muted() {
		t.Fatal("expected unmute to be ignored within the lockout")
	}

	// After the lockout a fresh open is honored.
	time.Sleep(150 * time.Millisecond)
	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute after the lockout")
	}
}

func TestAutoMute(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      5 * time.Millisecond,
		AutoMuteDelay: 100 * time.Millisecond,
	})

	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute")
	}

	// No further activity: the controller re-mutes on its own.
	if !waitFor(t, time.Second, c.Muted) {
		t.Fatal("expected auto-mute after the inactivity delay")
	}
}

func TestActivityReArmsAutoMute(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      5 * time.Millisecond,
		AutoMuteDelay: 200 * time.Millisecond,
	})

	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute")
	}

	// Confirmed activity at ~120 ms pushes the deadline out.
	time.Sleep(120 * time.Millisecond)
	sensor.set(LevelHigh)

	time.Sleep(150 * time.Millisecond)
	if c.Muted() {
		t.Fatal("auto-mute fired despite recent activity")
	}

	if !waitFor(t, time.Second, c.Muted) {
		t.Fatal("expected auto-mute once activity stops")
	}
}

func TestChangesNotification(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      5 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	sensor.set(LevelHigh)

	select {
	case <-c.Changes():
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
	if c.Muted() {
		t.Fatal("expected unmuted state behind the notification")
	}
}

func TestStateSnapshot(t *testing.T) {
	sensor := newFakeSensor(LevelLow)
	out := &recordingOutput{}
	c := startController(t, sensor, out, Config{
		Debounce:      5 * time.Millisecond,
		AutoMuteDelay: time.Hour,
	})

	before := c.State()
	if !before.Muted {
		t.Fatal("expected muted snapshot")
	}

	sensor.set(LevelHigh)
	if !waitFor(t, time.Second, func() bool { return !c.Muted() }) {
		t.Fatal("expected unmute")
	}

	after := c.State()
	if after.Muted {
		t.Fatal("expected unmuted snapshot")
	}
	if !after.LastTransition.After(before.LastTransition) {
		t.Fatal("expected transition timestamp to advance")
	}
}
