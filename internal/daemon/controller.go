package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/ipc"
	"github.com/1broseidon/traytile/internal/menubar"
	"github.com/1broseidon/traytile/internal/platform"
)

// recentMoveWindow is how far back a move counts as recent in status.
const recentMoveWindow = time.Second

// Items is the subset of *menubar.Manager the controller drives.
type Items interface {
	ItemCache() menubar.ItemCache
	TempShownItems() []menubar.TempShownItem
	LatestMoveOperationStarted(within time.Duration) bool
	CacheItemsIfNeeded(ctx context.Context) (bool, error)
	CacheItemsRegardless(ctx context.Context, ids []platform.WindowID) error
	FindItem(tag menubar.Tag) (menubar.Item, error)
	Move(ctx context.Context, item menubar.Item, dest menubar.Destination) error
	MoveToSection(ctx context.Context, item menubar.Item, s menubar.Section) error
	Click(ctx context.Context, item menubar.Item, button event.Button) error
	TempShow(ctx context.Context, item menubar.Item, button event.Button) error
	RehideTempShownItems(ctx context.Context) error
	RemoveTempShownItemFromCache(tag menubar.Tag)
}

var _ Items = (*menubar.Manager)(nil)

// Controller answers IPC commands using the item manager.
type Controller struct {
	items   Items
	started time.Time
	reload  func() error
}

var _ ipc.Handler = (*Controller)(nil)

// NewController creates a controller. reload may be nil.
func NewController(items Items, reload func() error) *Controller {
	return &Controller{items: items, started: time.Now(), reload: reload}
}

func (c *Controller) Status() ipc.StatusData {
	cache := c.items.ItemCache()
	status := ipc.StatusData{
		DaemonRunning: true,
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
		DisplayID:     cache.DisplayID,
		ItemCounts: ipc.ItemsBy{
			Visible:      len(cache.Items(menubar.SectionVisible)),
			Hidden:       len(cache.Items(menubar.SectionHidden)),
			AlwaysHidden: len(cache.Items(menubar.SectionAlwaysHidden)),
		},
		MovingRecent: c.items.LatestMoveOperationStarted(recentMoveWindow),
	}
	for _, shown := range c.items.TempShownItems() {
		status.TempShown = append(status.TempShown, shown.Tag.String())
	}
	return status
}

// ListItems returns the cached items left to right.
func (c *Controller) ListItems() ipc.ItemsData {
	cache := c.items.ItemCache()
	data := ipc.ItemsData{DisplayID: cache.DisplayID, Items: []ipc.ItemInfo{}}
	for _, s := range []menubar.Section{menubar.SectionAlwaysHidden, menubar.SectionHidden, menubar.SectionVisible} {
		for _, item := range cache.Items(s) {
			data.Items = append(data.Items, itemInfo(item, s))
		}
	}
	return data
}

func itemInfo(item menubar.Item, s menubar.Section) ipc.ItemInfo {
	return ipc.ItemInfo{
		Tag:         item.Tag.String(),
		Name:        item.DisplayName(),
		Section:     s.String(),
		WindowID:    uint32(item.WindowID),
		OwnerPID:    item.OwnerPID,
		SourcePID:   item.SourcePID,
		X:           item.Bounds.X,
		Y:           item.Bounds.Y,
		Width:       item.Bounds.Width,
		Height:      item.Bounds.Height,
		OnScreen:    item.IsOnScreen,
		Movable:     item.IsMovable,
		CanBeHidden: item.CanBeHidden,
		Control:     item.IsControlItem(),
	}
}

func (c *Controller) Refresh(ctx context.Context, req ipc.RefreshPayload) (ipc.RefreshData, error) {
	if req.Force {
		if err := c.items.CacheItemsRegardless(ctx, nil); err != nil {
			return ipc.RefreshData{}, err
		}
		return ipc.RefreshData{Refreshed: true}, nil
	}
	refreshed, err := c.items.CacheItemsIfNeeded(ctx)
	if err != nil {
		return ipc.RefreshData{}, err
	}
	return ipc.RefreshData{Refreshed: refreshed}, nil
}

func (c *Controller) MoveItem(ctx context.Context, req ipc.MoveItemPayload) error {
	item, err := c.find(req.Tag)
	if err != nil {
		return err
	}

	if req.Section != "" {
		if req.Target != "" {
			return fmt.Errorf("target and section are mutually exclusive")
		}
		s, err := menubar.ParseSection(req.Section)
		if err != nil {
			return err
		}
		return c.items.MoveToSection(ctx, item, s)
	}

	if req.Target == "" {
		return fmt.Errorf("target or section is required")
	}
	target, err := c.find(req.Target)
	if err != nil {
		return err
	}
	var dest menubar.Destination
	switch strings.ToLower(req.Direction) {
	case "left", "left-of":
		dest = menubar.LeftOf(target)
	case "", "right", "right-of":
		dest = menubar.RightOf(target)
	default:
		return fmt.Errorf("unknown direction %q (want left or right)", req.Direction)
	}
	return c.items.Move(ctx, item, dest)
}

func (c *Controller) ClickItem(ctx context.Context, req ipc.ClickItemPayload) error {
	item, err := c.find(req.Tag)
	if err != nil {
		return err
	}
	button, err := event.ParseButton(req.Button)
	if err != nil {
		return err
	}
	return c.items.Click(ctx, item, button)
}

func (c *Controller) TempShow(ctx context.Context, req ipc.TempShowPayload) error {
	item, err := c.find(req.Tag)
	if err != nil {
		return err
	}
	button, err := event.ParseButton(req.Button)
	if err != nil {
		return err
	}
	return c.items.TempShow(ctx, item, button)
}

func (c *Controller) Rehide(ctx context.Context) error {
	return c.items.RehideTempShownItems(ctx)
}

func (c *Controller) ForgetTemp(req ipc.ForgetTempPayload) error {
	tag, err := menubar.ParseTag(req.Tag)
	if err != nil {
		return err
	}
	c.items.RemoveTempShownItemFromCache(tag)
	return nil
}

func (c *Controller) Reload() error {
	if c.reload == nil {
		return fmt.Errorf("reload not supported")
	}
	return c.reload()
}

func (c *Controller) find(s string) (menubar.Item, error) {
	tag, err := menubar.ParseTag(s)
	if err != nil {
		return menubar.Item{}, err
	}
	return c.items.FindItem(tag)
}
