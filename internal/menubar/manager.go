// Package menubar keeps a classified cache of menu bar items and moves or
// clicks them by synthesizing input.
package menubar

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/platform"
)

// UserInput reports whether the user has been idle.
type UserInput interface {
	// PausedFor reports that no modifier or button is held and the pointer
	// has not moved or scrolled within d.
	PausedFor(d time.Duration) bool
}

// Suppressor relaxes the window system's filtering of synthetic input.
type Suppressor interface {
	PermitAllEvents() error
}

// Injectors pauses other components that inject input while an item is
// being moved or clicked.
type Injectors interface {
	StopAll()
	StartAll()
}

// Notifier shows a blocking notice to the user.
type Notifier interface {
	Alert(ctx context.Context, title, message string) error
}

// Settings supplies values that may change while the manager runs.
type Settings interface {
	TempShowInterval() time.Duration
}

// Timing holds the delays and bounds used by moves, clicks and temporary
// shows.
type Timing struct {
	MoveTimeout      time.Duration
	ClickTimeout     time.Duration
	MaxMoveAttempts  int
	EventSleep       time.Duration
	ResponsePoll     time.Duration
	QuietWindow      time.Duration
	InputWaitTimeout time.Duration
	ShowSettle       time.Duration
	PopupSettle      time.Duration
	RehideRetry      time.Duration
	MoveSkipWindow   time.Duration
	TempShowInterval time.Duration
}

// DefaultTiming returns the production timing.
func DefaultTiming() Timing {
	return Timing{
		MoveTimeout:      25 * time.Millisecond,
		ClickTimeout:     250 * time.Millisecond,
		MaxMoveAttempts:  10,
		EventSleep:       25 * time.Millisecond,
		ResponsePoll:     2 * time.Millisecond,
		QuietWindow:      100 * time.Millisecond,
		InputWaitTimeout: 30 * time.Second,
		ShowSettle:       100 * time.Millisecond,
		PopupSettle:      250 * time.Millisecond,
		RehideRetry:      3 * time.Second,
		MoveSkipWindow:   time.Second,
		TempShowInterval: 15 * time.Second,
	}
}

// Options configures a Manager. Backend is required; Dispatcher, Pointer
// and Injectors are required for moves and clicks.
type Options struct {
	Backend    platform.Backend
	Pointer    platform.Pointer
	Dispatcher event.Dispatcher
	Input      UserInput
	Suppressor Suppressor
	Injectors  Injectors
	Notifier   Notifier
	Settings   Settings
	Identity   Identity
	Timing     Timing
	Logger     *slog.Logger
}

// Manager owns the item cache and performs item operations. All mutable
// state is guarded by mu.
type Manager struct {
	backend    platform.Backend
	pointer    platform.Pointer
	dispatcher event.Dispatcher
	input      UserInput
	suppressor Suppressor
	injectors  Injectors
	notifier   Notifier
	settings   Settings
	identity   Identity
	timing     Timing
	logger     *slog.Logger

	cacheSlot *taskSlot
	rehideMu  sync.Mutex

	lifetime context.Context
	stop     context.CancelFunc

	mu              sync.Mutex
	cache           ItemCache
	cachedWindowIDs []platform.WindowID
	tempShown       []*tempShownContext
	rehiding        []*tempShownContext
	rehideTimer     *time.Timer
	latestMove      time.Time
	observers       map[int]func(ItemCache)
	nextObserver    int
}

// NewManager creates a manager. Zero Timing fields take their defaults.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lifetime, stop := context.WithCancel(context.Background())
	return &Manager{
		backend:    opts.Backend,
		pointer:    opts.Pointer,
		dispatcher: opts.Dispatcher,
		input:      opts.Input,
		suppressor: opts.Suppressor,
		injectors:  opts.Injectors,
		notifier:   opts.Notifier,
		settings:   opts.Settings,
		identity:   opts.Identity,
		timing:     withDefaults(opts.Timing),
		logger:     logger,
		lifetime:   lifetime,
		stop:       stop,
		cacheSlot:  newTaskSlot(lifetime),
		cache:      NewItemCache(NoDisplay),
		observers:  make(map[int]func(ItemCache)),
	}
}

func withDefaults(t Timing) Timing {
	d := DefaultTiming()
	setDur := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	setDur(&t.MoveTimeout, d.MoveTimeout)
	setDur(&t.ClickTimeout, d.ClickTimeout)
	setDur(&t.EventSleep, d.EventSleep)
	setDur(&t.ResponsePoll, d.ResponsePoll)
	setDur(&t.QuietWindow, d.QuietWindow)
	setDur(&t.InputWaitTimeout, d.InputWaitTimeout)
	setDur(&t.ShowSettle, d.ShowSettle)
	setDur(&t.PopupSettle, d.PopupSettle)
	setDur(&t.RehideRetry, d.RehideRetry)
	setDur(&t.MoveSkipWindow, d.MoveSkipWindow)
	setDur(&t.TempShowInterval, d.TempShowInterval)
	if t.MaxMoveAttempts <= 0 {
		t.MaxMoveAttempts = d.MaxMoveAttempts
	}
	return t
}

// SetIdentity replaces the control item identity used by later snapshots.
func (m *Manager) SetIdentity(id Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
}

// Close stops the rehide timer and cancels background rehides.
func (m *Manager) Close() {
	m.stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rehideTimer != nil {
		m.rehideTimer.Stop()
		m.rehideTimer = nil
	}
}

// ItemCache returns the most recently published cache.
func (m *Manager) ItemCache() ItemCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache
}

// Subscribe registers fn to receive every published cache. The returned
// function unregisters it.
func (m *Manager) Subscribe(fn func(ItemCache)) func() {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// LatestMoveOperationStarted reports whether a move started within d.
func (m *Manager) LatestMoveOperationStarted(within time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.latestMove.IsZero() && time.Since(m.latestMove) <= within
}

func (m *Manager) stampMove() {
	m.mu.Lock()
	m.latestMove = time.Now()
	m.mu.Unlock()
}

func (m *Manager) currentIdentity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// snapshot returns the active desktop's items, left to right.
func (m *Manager) snapshot() ([]Item, error) {
	windows, err := m.backend.MenuBarWindows(true)
	if err != nil {
		return nil, err
	}
	return NewItems(windows, m.currentIdentity()), nil
}

// FindItem returns the live item with tag.
func (m *Manager) FindItem(tag Tag) (Item, error) {
	items, err := m.snapshot()
	if err != nil {
		return Item{}, err
	}
	if i := indexOfTag(items, tag); i >= 0 {
		return items[i], nil
	}
	return Item{}, ErrItemNotFound
}

// CacheItemsIfNeeded refreshes the cache when the live window id order
// differs from the last cached one. It does nothing while a move started
// within the skip window. refreshed reports whether a cache pass ran.
func (m *Manager) CacheItemsIfNeeded(ctx context.Context) (refreshed bool, err error) {
	if m.LatestMoveOperationStarted(m.timing.MoveSkipWindow) {
		m.logger.Debug("skipping item cache due to recent item movement")
		return false, nil
	}

	ids, err := m.backend.MenuBarWindowIDs()
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	same := slices.Equal(m.cachedWindowIDs, ids)
	m.mu.Unlock()
	if same {
		return false, nil
	}

	return true, m.CacheItemsRegardless(ctx, ids)
}

// CacheItemsRegardless rebuilds the cache. A call supersedes and cancels
// any pass already in flight; every caller returns once the latest pass
// has finished. ids, when non-nil, is recorded as the cached window id
// order instead of the snapshot's own.
func (m *Manager) CacheItemsRegardless(ctx context.Context, ids []platform.WindowID) error {
	return m.cacheSlot.run(ctx, func(taskCtx context.Context) {
		m.cacheItems(taskCtx, ids)
	})
}

func (m *Manager) cacheItems(ctx context.Context, ids []platform.WindowID) {
	displayID := NoDisplay
	if screen, err := m.backend.ActiveMenuBarScreen(); err == nil {
		displayID = screen.Display.ID
	}

	items, err := m.snapshot()
	if err != nil {
		m.logger.Error("failed to snapshot menu bar items", "error", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	if ids == nil {
		ids = windowIDs(items)
	}
	m.mu.Lock()
	m.cachedWindowIDs = ids
	m.mu.Unlock()

	pair, rest, ok := extractControlItems(items)
	if !ok {
		m.logger.Warn("missing control item for hidden section, clearing item cache")
		m.publish(ctx, NewItemCache(NoDisplay))
		return
	}

	m.enforceControlItemOrder(ctx, pair)
	if ctx.Err() != nil {
		return
	}

	cache, invalidate := m.classify(rest, pair, displayID)
	if invalidate {
		m.logger.Info("clearing cached item window ids")
		m.mu.Lock()
		m.cachedWindowIDs = nil
		m.mu.Unlock()
	}
	m.publish(ctx, cache)
}

// enforceControlItemOrder moves the always-hidden marker left of the hidden
// marker when it sits to its right.
func (m *Manager) enforceControlItemOrder(ctx context.Context, pair ControlItemPair) {
	if pair.AlwaysHidden == nil || pair.Hidden.Bounds.MaxX() > pair.AlwaysHidden.Bounds.MinX() {
		return
	}
	m.logger.Debug("control items have incorrect order")
	if err := m.Move(ctx, *pair.AlwaysHidden, LeftOf(pair.Hidden)); err != nil {
		m.logger.Error("failed to enforce control item order", "error", err)
	}
}

func (m *Manager) bestBounds(item Item) platform.Rect {
	if b, err := m.backend.WindowBounds(item.WindowID); err == nil {
		return b
	}
	return item.Bounds
}

func (m *Manager) classify(items []Item, pair ControlItemPair, displayID int) (ItemCache, bool) {
	c := classifier{hidden: m.bestBounds(pair.Hidden), bounds: m.bestBounds}
	if pair.AlwaysHidden != nil {
		b := m.bestBounds(*pair.AlwaysHidden)
		c.alwaysHidden = &b
	}

	returns := m.tempShownDestinations()

	cache := NewItemCache(displayID)
	invalidate := false

	type deferred struct {
		item Item
		dest Destination
	}
	var shown []deferred

	for _, item := range items {
		if !isValidForCaching(item) {
			continue
		}
		if item.SourcePID == 0 {
			m.logger.Warn("missing source pid", "item", item.String())
			invalidate = true
		}
		if dest, ok := returns[item.Tag]; ok {
			shown = append(shown, deferred{item: item, dest: dest})
			continue
		}
		if s, ok := c.section(item); ok {
			cache.append(s, item)
			continue
		}
		m.logger.Warn("no section for item", "item", item.String())
		invalidate = true
	}

	for _, d := range shown {
		cache.Insert(d.item, d.dest)
	}
	return cache, invalidate
}

// publish installs cache unless ctx was cancelled, then notifies observers.
func (m *Manager) publish(ctx context.Context, cache ItemCache) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.cache = cache
	observers := make([]func(ItemCache), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	m.logger.Debug("updated item cache", "items", cache.Len(), "display", cache.DisplayID)
	for _, fn := range observers {
		fn(cache)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
