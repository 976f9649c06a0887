package menubar

import (
	"context"
	"errors"
	"time"

	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/platform"
)

func (m *Manager) currentBounds(item Item) (platform.Rect, error) {
	b, err := m.backend.WindowBounds(item.WindowID)
	if err != nil {
		return platform.Rect{}, newEventError(CodeMissingItemBounds, item, err)
	}
	return b, nil
}

// targetPoints returns the drag start and end points for moving item to
// dest. Which edge of the target is used, and whether a one pixel nudge is
// needed, depends on the side of the target the item starts on.
func (m *Manager) targetPoints(item Item, dest Destination) (start, end platform.Point, err error) {
	itemBounds, err := m.currentBounds(item)
	if err != nil {
		return start, end, err
	}
	targetBounds, err := m.currentBounds(dest.Target)
	if err != nil {
		return start, end, err
	}
	start, end = dragPoints(itemBounds, targetBounds, dest.Direction)
	return start, end, nil
}

func dragPoints(itemBounds, targetBounds platform.Rect, dir Direction) (start, end platform.Point) {
	switch dir {
	case RightOfItem:
		start = platform.Point{X: targetBounds.MaxX(), Y: targetBounds.MinY()}
		end = start
		if itemBounds.MinX() <= targetBounds.MaxX() {
			end.X -= itemBounds.Width
		} else {
			start.X++
		}
	default:
		start = platform.Point{X: targetBounds.MinX(), Y: targetBounds.MinY()}
		end = start
		if itemBounds.MaxX() <= targetBounds.MinX() {
			end.X -= itemBounds.Width
		} else {
			start.X--
		}
	}
	return start, end
}

func (m *Manager) hasCorrectPosition(item Item, dest Destination) (bool, error) {
	itemBounds, err := m.currentBounds(item)
	if err != nil {
		return false, err
	}
	targetBounds, err := m.currentBounds(dest.Target)
	if err != nil {
		return false, err
	}
	if dest.Direction == RightOfItem {
		return itemBounds.MinX() == targetBounds.MaxX(), nil
	}
	return itemBounds.MaxX() == targetBounds.MinX(), nil
}

// waitForResponse polls the item's bounds until they differ from initial.
func (m *Manager) waitForResponse(ctx context.Context, item Item, initial platform.Rect, timeout time.Duration) (platform.Rect, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(m.timing.ResponsePoll)
	defer ticker.Stop()

	for {
		b, err := m.currentBounds(item)
		if err != nil {
			return platform.Rect{}, err
		}
		if b != initial {
			m.logger.Debug("item responded", "item", item.String(), "x", b.X, "y", b.Y)
			return b, nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return platform.Rect{}, newEventError(CodeCannotComplete, item, ctx.Err())
			}
			return platform.Rect{}, newEventError(CodeItemResponseTimeout, item, nil)
		case <-ticker.C:
		}
	}
}

// scramble runs the delivery handshake for an event addressed to pid and
// maps its failures to EventErrors.
func (m *Manager) scramble(ctx context.Context, ev *event.Event, item Item, pid int, timeout time.Duration, count int) error {
	err := event.Scramble(ctx, m.dispatcher, ev, event.PID(pid), event.Session(), timeout, count)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, event.ErrTimeout):
		return newEventError(CodeEventOperationTimeout, item, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newEventError(CodeCannotComplete, item, err)
	default:
		return newEventError(CodeEventOperationFailure, item, err)
	}
}

func (m *Manager) waitForUserToPauseInput(ctx context.Context) error {
	if m.input == nil || m.input.PausedFor(m.timing.QuietWindow) {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.timing.InputWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * m.timing.QuietWindow)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-ticker.C:
			if m.input.PausedFor(m.timing.QuietWindow) {
				return nil
			}
		}
	}
}

// prepareInput covers the steps moves and clicks share before posting
// events. The returned function undoes them and must always be called.
func (m *Manager) prepareInput(ctx context.Context, item Item) (restore func(), err error) {
	if m.injectors == nil || m.pointer == nil {
		return nil, newEventError(CodeCannotComplete, item, nil)
	}
	if m.dispatcher == nil {
		return nil, newEventError(CodeInvalidEventSource, item, nil)
	}
	if err := m.waitForUserToPauseInput(ctx); err != nil {
		return nil, newEventError(CodeCannotComplete, item, err)
	}
	if m.suppressor != nil {
		if err := m.suppressor.PermitAllEvents(); err != nil {
			return nil, newEventError(CodeInvalidEventSource, item, err)
		}
	}

	m.injectors.StopAll()

	state, err := m.pointer.State()
	if err != nil {
		m.injectors.StartAll()
		return nil, newEventError(CodeMissingMouseLocation, item, err)
	}
	if err := m.pointer.Hide(); err != nil {
		m.logger.Debug("failed to hide pointer", "error", err)
	}

	return func() {
		if err := m.pointer.Warp(state.Location); err != nil {
			m.logger.Debug("failed to restore pointer", "error", err)
		}
		if err := m.pointer.Show(); err != nil {
			m.logger.Debug("failed to show pointer", "error", err)
		}
		m.injectors.StartAll()
	}, nil
}

// Move moves item to dest, retrying failed attempts. An attempt that finds
// the item already in place succeeds without posting events.
func (m *Manager) Move(ctx context.Context, item Item, dest Destination) error {
	if !item.IsMovable {
		return newEventError(CodeItemNotMovable, item, nil)
	}

	restore, err := m.prepareInput(ctx, item)
	if err != nil {
		return err
	}
	defer restore()

	m.logger.Info("moving item", "item", item.String(), "destination", dest.String())

	maxAttempts := m.timing.MaxMoveAttempts
	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return newEventError(CodeCannotComplete, item, err)
		}

		err := m.moveAttempt(ctx, item, dest)
		if err == nil {
			m.logger.Debug("move attempt succeeded", "attempt", n)
			break
		}
		if n == maxAttempts {
			return asEventError(err, item)
		}
		m.logger.Debug("move attempt failed", "attempt", n, "error", err)
		_ = m.sleep(ctx, m.timing.EventSleep)
	}

	m.logger.Info("moved item", "item", item.String())
	return nil
}

func (m *Manager) moveAttempt(ctx context.Context, item Item, dest Destination) error {
	ok, err := m.hasCorrectPosition(item, dest)
	if err != nil {
		return err
	}
	if ok {
		m.logger.Debug("item has correct position", "item", item.String())
		return nil
	}
	return m.postMoveEvents(ctx, item, dest)
}

func (m *Manager) postMoveEvents(ctx context.Context, item Item, dest Destination) error {
	bounds, err := m.currentBounds(item)
	if err != nil {
		return err
	}
	start, end, err := m.targetPoints(item, dest)
	if err != nil {
		return err
	}
	pid := item.EventPID()
	timeout := m.timing.MoveTimeout

	down := event.New(event.TypeLeftMouseDown, start, event.ButtonLeft).TargetItem(item.WindowID, pid)
	down.Flags = event.FlagCommand
	up := event.New(event.TypeLeftMouseUp, end, event.ButtonLeft).TargetItem(dest.Target.WindowID, pid)

	m.stampMove()

	err = func() error {
		if err := m.scramble(ctx, down, item, pid, timeout, 1); err != nil {
			return err
		}
		if bounds, err = m.waitForResponse(ctx, item, bounds, timeout); err != nil {
			return err
		}
		// Mouse up is posted twice; a single one can leave the item stuck.
		if err := m.scramble(ctx, up, item, pid, timeout, 2); err != nil {
			return err
		}
		_, err := m.waitForResponse(ctx, item, bounds, timeout)
		return err
	}()
	if err != nil {
		m.logger.Debug("move events failed, posting fallback event", "item", item.String())
		if ferr := m.scramble(context.WithoutCancel(ctx), up, item, pid, timeout, 2); ferr != nil {
			m.logger.Error("fallback event failed", "item", item.String(), "error", ferr)
		}
		return err
	}
	return nil
}
