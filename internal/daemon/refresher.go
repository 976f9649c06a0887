package daemon

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultRefreshInterval = 5 * time.Second
	defaultTriggerDelay    = 250 * time.Millisecond
	defaultTriggerDebounce = time.Second
)

// Cacher refreshes the item cache when the menu bar changed.
type Cacher interface {
	CacheItemsIfNeeded(ctx context.Context) (bool, error)
}

// RefresherConfig holds configuration for the refresher.
type RefresherConfig struct {
	Interval time.Duration

	// TriggerDelay is how long after a trigger the refresh runs. Apps
	// usually dock their icon shortly after connecting to the bus.
	TriggerDelay time.Duration

	// Debounce is the minimum spacing of trigger-driven refreshes.
	Debounce time.Duration

	Logger *slog.Logger
}

// Refresher keeps the item cache current: on a fixed period and shortly
// after each trigger.
type Refresher struct {
	interval time.Duration
	delay    time.Duration
	debounce time.Duration
	cacher   Cacher
	triggers <-chan struct{}
	reset    chan time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a new refresher. triggers may be nil.
func NewRefresher(cfg RefresherConfig, cacher Cacher, triggers <-chan struct{}) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	delay := cfg.TriggerDelay
	if delay <= 0 {
		delay = defaultTriggerDelay
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultTriggerDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		interval: interval,
		delay:    delay,
		debounce: debounce,
		cacher:   cacher,
		triggers: triggers,
		reset:    make(chan time.Duration, 1),
		logger:   logger,
	}
}

// SetInterval changes the refresh period of a running refresher.
func (r *Refresher) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	// Keep only the latest value.
	select {
	case <-r.reset:
	default:
	}
	r.reset <- d
}

// Run starts the refresh loop. Blocks until context is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var pending *time.Timer
	var fire <-chan time.Time
	var lastTriggered time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	r.logger.Info("refresher started", "interval", r.interval)
	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return nil

		case d := <-r.reset:
			r.interval = d
			ticker.Reset(d)
			r.logger.Info("refresher interval changed", "interval", d)

		case <-ticker.C:
			r.refresh(ctx)

		case <-r.triggers:
			if fire != nil {
				continue
			}
			wait := r.delay
			if next := time.Until(lastTriggered.Add(r.debounce)); next > wait {
				wait = next
			}
			pending = time.NewTimer(wait)
			fire = pending.C

		case <-fire:
			fire = nil
			lastTriggered = time.Now()
			r.refresh(ctx)
		}
	}
}

// refresh performs a single cache check.
func (r *Refresher) refresh(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("refresher panic recovered", "error", err)
		}
	}()

	refreshed, err := r.cacher.CacheItemsIfNeeded(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("refresher: failed to cache items", "error", err)
		}
		return
	}
	if refreshed {
		r.logger.Debug("refresher: item cache rebuilt")
	}
}

// RefreshNow triggers an immediate refresh pass.
func (r *Refresher) RefreshNow(ctx context.Context) {
	r.refresh(ctx)
}
