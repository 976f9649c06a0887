package menubar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/platform"
)

const maxRehideAttempts = 3

// notchClearance is the gap kept right of a display notch.
const notchClearance = 30

// tempShownContext tracks an item moved into the visible section on demand.
type tempShownContext struct {
	tag            Tag
	returnTo       Destination
	popup          platform.WindowID
	rehideAttempts int
	discarded      bool
}

// TempShownItem describes a temporarily shown item for callers.
type TempShownItem struct {
	Tag         Tag
	ReturnTo    Destination
	PopupWindow platform.WindowID
}

// TempShownItems lists the items currently shown on demand, oldest first.
func (m *Manager) TempShownItems() []TempShownItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TempShownItem, 0, len(m.tempShown))
	for _, c := range m.tempShown {
		out = append(out, TempShownItem{Tag: c.tag, ReturnTo: c.returnTo, PopupWindow: c.popup})
	}
	return out
}

func (m *Manager) tempShownDestinations() map[Tag]Destination {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Tag]Destination, len(m.tempShown))
	for _, c := range m.tempShown {
		if _, ok := out[c.tag]; !ok {
			out[c.tag] = c.returnTo
		}
	}
	return out
}

// returnDestination is left of the item's right neighbour, or right of its
// left neighbour when it is the rightmost item.
func returnDestination(item Item, items []Item) (Destination, bool) {
	i := indexOfTag(items, item.Tag)
	if i < 0 {
		return Destination{}, false
	}
	if i+1 < len(items) {
		return LeftOf(items[i+1]), true
	}
	if i > 0 {
		return RightOf(items[i-1]), true
	}
	return Destination{}, false
}

// showCandidates returns the items item may be moved left of, best first.
func showCandidates(item Item, items []Item, screen platform.Screen) []Item {
	i := 0
	for i < len(items) && items[i].Role != RoleHidden {
		i++
	}
	if i < len(items) {
		i++
	}
	items = items[i:]

	for len(items) > 0 && !items[0].IsOnScreen {
		items = items[1:]
	}

	maxX := screen.ApplicationMenuFrame.MaxX()
	if screen.HasNotch {
		maxX = max(screen.Notch.MaxX()+notchClearance, maxX)
	}
	for len(items) > 0 && (!items[0].CanBeHidden || items[0].Bounds.MinX()-item.Bounds.Width <= maxX) {
		items = items[1:]
	}
	return items
}

// TempShow moves item into the visible section, clicks it with button and
// schedules it to be returned after the configured interval.
func (m *Manager) TempShow(ctx context.Context, item Item, button event.Button) error {
	screen, err := m.backend.ActiveMenuBarScreen()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoActiveScreen, err)
	}

	items, err := m.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot items: %w", err)
	}

	dest, ok := returnDestination(item, items)
	if !ok {
		m.logger.Error("no return destination", "item", item.String())
		return fmt.Errorf("%w for %s", ErrNoReturnDestination, item)
	}

	candidates := showCandidates(item, items, screen)
	if len(candidates) == 0 {
		m.logger.Warn("not enough room to show item", "item", item.String())
		msg := fmt.Sprintf("Not enough room to show %q", item.DisplayName())
		if m.notifier != nil {
			if err := m.notifier.Alert(ctx, "traytile", msg); err != nil {
				m.logger.Warn("failed to show notice", "error", err)
			}
		}
		return fmt.Errorf("%w: %q", ErrNotEnoughRoom, item.DisplayName())
	}

	m.logger.Debug("temporarily showing item", "item", item.String())
	if err := m.Move(ctx, item, LeftOf(candidates[0])); err != nil {
		return fmt.Errorf("show item: %w", err)
	}

	shown := &tempShownContext{tag: item.Tag, returnTo: dest}
	m.mu.Lock()
	m.tempShown = append(m.tempShown, shown)
	if m.rehideTimer != nil {
		m.rehideTimer.Stop()
	}
	m.mu.Unlock()
	defer m.runRehideTimer(0)

	if err := m.sleep(ctx, m.timing.ShowSettle); err != nil {
		return fmt.Errorf("show item: %w", err)
	}
	before := make(map[platform.WindowID]bool)
	if ids, err := m.backend.OnScreenWindowIDs(); err == nil {
		for _, id := range ids {
			before[id] = true
		}
	}

	if err := m.Click(ctx, item, button); err != nil {
		m.logger.Error("failed to click shown item", "item", item.String(), "error", err)
		return fmt.Errorf("click item: %w", err)
	}

	if err := m.sleep(ctx, m.timing.PopupSettle); err != nil {
		return fmt.Errorf("wait for item interface: %w", err)
	}
	windows, err := m.backend.OnScreenWindows()
	if err != nil {
		m.logger.Debug("failed to list windows after click", "error", err)
		return nil
	}
	pid := item.EventPID()
	for _, w := range windows {
		if w.OwnerPID == pid && !before[w.ID] {
			m.mu.Lock()
			shown.popup = w.ID
			m.mu.Unlock()
			break
		}
	}
	return nil
}

// runRehideTimer restarts the single rehide timer. A zero interval uses
// the configured temporary show interval.
func (m *Manager) runRehideTimer(interval time.Duration) {
	if interval <= 0 {
		interval = m.timing.TempShowInterval
		if m.settings != nil {
			if v := m.settings.TempShowInterval(); v > 0 {
				interval = v
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lifetime.Err() != nil {
		return
	}
	if m.rehideTimer != nil {
		m.rehideTimer.Stop()
	}
	m.logger.Debug("running rehide timer", "interval", interval)
	m.rehideTimer = time.AfterFunc(interval, func() {
		m.logger.Debug("rehide timer fired")
		if err := m.RehideTempShownItems(m.lifetime); err != nil {
			m.logger.Warn("rehide failed", "error", err)
		}
	})
}

func (m *Manager) isShowingInterface(popup platform.WindowID) bool {
	if popup == 0 {
		return false
	}
	w, ok := m.backend.Window(popup)
	if !ok {
		return false
	}
	if !w.IsPopupMenu {
		return w.OwnerActive && w.IsOnScreen
	}
	return w.IsOnScreen
}

// popTempShown hands the newest context to a running rehide. Popped
// contexts stay visible to RemoveTempShownItemFromCache until the rehide
// finishes with them.
func (m *Manager) popTempShown() *tempShownContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.tempShown)
	if n == 0 {
		return nil
	}
	c := m.tempShown[n-1]
	m.tempShown = m.tempShown[:n-1]
	m.rehiding = append(m.rehiding, c)
	return c
}

// pushTempShown requeues contexts, dropping any discarded meanwhile, and
// returns the ones kept.
func (m *Manager) pushTempShown(cs ...*tempShownContext) []*tempShownContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*tempShownContext
	for _, c := range cs {
		if !c.discarded {
			kept = append(kept, c)
		}
	}
	m.tempShown = append(m.tempShown, kept...)
	return kept
}

func (m *Manager) finishRehide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rehiding = nil
}

// RehideTempShownItems returns temporarily shown items to where they were
// shown from, most recent first. While any of their popups is open the
// rehide is postponed. Items that repeatedly fail stay tracked and are
// retried later; ErrRehideDeferred reports them.
func (m *Manager) RehideTempShownItems(ctx context.Context) error {
	m.rehideMu.Lock()
	defer m.rehideMu.Unlock()

	m.mu.Lock()
	popups := make([]platform.WindowID, 0, len(m.tempShown))
	for _, c := range m.tempShown {
		popups = append(popups, c.popup)
	}
	m.mu.Unlock()

	if len(popups) == 0 {
		return nil
	}
	for _, p := range popups {
		if m.isShowingInterface(p) {
			m.logger.Debug("item interface is shown, waiting to rehide")
			m.runRehideTimer(m.timing.RehideRetry)
			return nil
		}
	}

	items, err := m.snapshot()
	if err != nil {
		m.runRehideTimer(m.timing.RehideRetry)
		return fmt.Errorf("snapshot items: %w", err)
	}

	m.logger.Debug("rehiding temporarily shown items")
	defer m.finishRehide()

	var failed []*tempShownContext
	for {
		c := m.popTempShown()
		if c == nil {
			break
		}
		i := indexOfTag(items, c.tag)
		if i < 0 {
			continue
		}
		item := items[i]

		err := m.Move(ctx, item, c.returnTo)
		if err == nil {
			var ok bool
			if ok, err = m.hasCorrectPosition(item, c.returnTo); err == nil && !ok {
				err = newEventError(CodeIncorrectPositionAfterMove, item, nil)
			}
		}
		if err != nil {
			m.mu.Lock()
			discarded := c.discarded
			m.mu.Unlock()
			if discarded {
				continue
			}
			c.rehideAttempts++
			m.logger.Warn("failed to rehide item", "item", item.String(), "attempt", c.rehideAttempts, "error", err)
			if c.rehideAttempts < maxRehideAttempts && ctx.Err() == nil {
				m.pushTempShown(c)
			} else {
				c.rehideAttempts = 0
				failed = append(failed, c)
			}
		}
		_ = m.sleep(ctx, m.timing.EventSleep)
	}

	failed = m.pushTempShown(failed...)
	if len(failed) == 0 {
		return nil
	}
	tags := make([]string, 0, len(failed))
	for _, c := range failed {
		tags = append(tags, c.tag.String())
	}
	m.logger.Error("some items failed to rehide", "items", tags)
	m.runRehideTimer(m.timing.RehideRetry)
	return fmt.Errorf("%w: %s", ErrRehideDeferred, strings.Join(tags, ", "))
}

// RemoveTempShownItemFromCache stops tracking the item with tag so it is
// not returned to its previous position. A rehide already holding the
// item drops it instead of requeueing it.
func (m *Manager) RemoveTempShownItemFromCache(tag Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rehiding {
		if c.tag == tag {
			c.discarded = true
		}
	}
	kept := m.tempShown[:0]
	for _, c := range m.tempShown {
		if c.tag == tag {
			c.discarded = true
			continue
		}
		kept = append(kept, c)
	}
	m.tempShown = kept
}
