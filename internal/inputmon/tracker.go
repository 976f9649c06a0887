// Package inputmon watches the pointer for user activity and coordinates
// components that must stand aside while input is synthesized.
package inputmon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/traytile/internal/platform"
)

// Sampler reads the pointer state.
type Sampler interface {
	State() (platform.PointerState, error)
}

// Tracker records when the user last moved the pointer or held a button or
// modifier. It implements menubar.UserInput.
type Tracker struct {
	sampler  Sampler
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu           sync.Mutex
	last         platform.Point
	hasLast      bool
	held         bool
	lastActivity time.Time
	paused       int
}

// NewTracker creates a tracker that samples every interval while Run is
// active.
func NewTracker(sampler Sampler, interval time.Duration, logger *slog.Logger) *Tracker {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sampler:  sampler,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run samples until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Sample()
		}
	}
}

// Sample reads the pointer once. It does nothing while the tracker is
// paused.
func (t *Tracker) Sample() {
	t.mu.Lock()
	paused := t.paused > 0
	t.mu.Unlock()
	if paused {
		return
	}

	state, err := t.sampler.State()
	if err != nil {
		t.logger.Debug("pointer sample failed", "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused > 0 {
		return
	}
	t.observe(state, true)
}

// observe records state. Caller holds mu.
func (t *Tracker) observe(state platform.PointerState, countMotion bool) {
	now := t.now()
	moved := t.hasLast && state.Location != t.last
	if (countMotion && moved) || state.ButtonPressed || state.ModifierHeld {
		t.lastActivity = now
	}
	t.held = state.ButtonPressed || state.ModifierHeld
	t.last = state.Location
	t.hasLast = true
}

// PausedFor reports that nothing is held and the pointer has not moved
// within d.
func (t *Tracker) PausedFor(d time.Duration) bool {
	t.Sample()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held {
		return false
	}
	return t.now().Sub(t.lastActivity) >= d
}

// Stop suspends sampling so synthesized motion is not taken for the user.
// Calls nest.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.paused++
	t.mu.Unlock()
}

// Start undoes one Stop. The first sample afterwards sets a new baseline
// position without counting as activity.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.paused > 0 {
		t.paused--
	}
	resume := t.paused == 0
	t.mu.Unlock()
	if !resume {
		return
	}

	state, err := t.sampler.State()
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paused == 0 {
		t.observe(state, false)
	}
}
