package menubar

import (
	"context"
	"fmt"

	"github.com/1broseidon/traytile/internal/event"
)

// Click clicks the center of item with button. Clicks are not retried.
func (m *Manager) Click(ctx context.Context, item Item, button event.Button) error {
	downType, okDown := button.DownType()
	upType, okUp := button.UpType()
	if !okDown || !okUp {
		return newEventError(CodeEventCreationFailure, item, fmt.Errorf("unsupported button %s", button))
	}

	restore, err := m.prepareInput(ctx, item)
	if err != nil {
		return err
	}
	defer restore()

	bounds, err := m.currentBounds(item)
	if err != nil {
		return err
	}
	pid := item.EventPID()
	point := bounds.Center()
	timeout := m.timing.ClickTimeout

	down := event.New(downType, point, button).TargetItem(item.WindowID, pid)
	down.SetField(event.FieldClickState, 1)
	up := event.New(upType, point, button).TargetItem(item.WindowID, pid)
	up.SetField(event.FieldClickState, 0)

	m.logger.Info("clicking item", "item", item.String(), "button", button.String())

	err = m.scramble(ctx, down, item, pid, timeout, 1)
	if err == nil {
		err = m.scramble(ctx, up, item, pid, timeout, 2)
	}
	if err != nil {
		m.logger.Debug("click events failed, posting fallback event", "item", item.String())
		if ferr := m.scramble(context.WithoutCancel(ctx), up, item, pid, timeout, 2); ferr != nil {
			m.logger.Error("fallback event failed", "item", item.String(), "error", ferr)
		}
		return err
	}

	m.logger.Info("clicked item", "item", item.String())
	return nil
}
