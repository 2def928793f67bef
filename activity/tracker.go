package activity

import (
	"context"
	"sync"
	"time"
)

// EventKind identifies the class of interaction feeding the tracker.
type EventKind uint8

const (
	// EventPointer covers pointer movement, throttled aggressively.
	EventPointer EventKind = iota
	// EventInput covers clicks, key presses, touches, and focus changes.
	EventInput
)

// Config defines a public type used by activity APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	InactivityThreshold time.Duration
	CheckInterval       time.Duration
	PointerThrottle     time.Duration
	InputThrottle       time.Duration
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return Config{
		InactivityThreshold: 30 * time.Minute,
		CheckInterval:       30 * time.Second,
		PointerThrottle:     5 * time.Second,
		InputThrottle:       time.Second,
	}
}

// Snapshot is the tracker state at one instant.
type Snapshot struct {
	IsActive          bool
	LastActivity      time.Time
	TimeUntilInactive time.Duration
}

// Tracker defines a public type used by activity APIs.
//
// Tracker instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Tracker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	lastActivity time.Time
	lastPointer  time.Time
	lastInput    time.Time
	active       bool
}

// Option configures a [Tracker].
type Option func(*Tracker)

// WithClock overrides the tracker's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker describes the newtracker operation and its observable behavior.
//
// NewTracker may return an error when input validation, dependency calls, or security checks fail.
// NewTracker does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewTracker(cfg Config, opts ...Option) *Tracker {
	if cfg.InactivityThreshold <= 0 {
		cfg = DefaultConfig()
	}

	t := &Tracker{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.lastActivity = t.now()
	t.active = true

	return t
}

// Observe describes the observe operation and its observable behavior.
//
// Observe may return an error when input validation, dependency calls, or security checks fail.
// Observe does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Observations inside the per-kind throttle window are dropped without
// touching the last-activity timestamp.
func (t *Tracker) Observe(kind EventKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	switch kind {
	case EventPointer:
		if now.Sub(t.lastPointer) < t.cfg.PointerThrottle {
			return
		}
		t.lastPointer = now
	case EventInput:
		if now.Sub(t.lastInput) < t.cfg.InputThrottle {
			return
		}
		t.lastInput = now
	default:
		return
	}

	t.lastActivity = now
	t.active = true
}

// Check describes the check operation and its observable behavior.
//
// Check may return an error when input validation, dependency calls, or security checks fail.
// Check does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (t *Tracker) Check() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = t.now().Sub(t.lastActivity) < t.cfg.InactivityThreshold
	return t.active
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// IsActive reflects the last periodic [Tracker.Check] result; the flag flips
// only on a check, never between them.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.cfg.InactivityThreshold - t.now().Sub(t.lastActivity)
	if remaining < 0 {
		remaining = 0
	}

	return Snapshot{
		IsActive:          t.active,
		LastActivity:      t.lastActivity,
		TimeUntilInactive: remaining,
	}
}

// Run describes the run operation and its observable behavior.
//
// Run may return an error when input validation, dependency calls, or security checks fail.
// Run does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Run blocks until ctx is done, recomputing the active flag on the
// configured interval and invoking onChange on every transition.
func (t *Tracker) Run(ctx context.Context, onChange func(active bool)) {
	interval := t.cfg.CheckInterval
	if interval <= 0 {
		interval = DefaultConfig().CheckInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := t.Check()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := t.Check()
			if cur != prev && onChange != nil {
				onChange(cur)
			}
			prev = cur
		}
	}
}
