package x11

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// ErrNoTray is returned when no client owns the system tray selection.
var ErrNoTray = errors.New("no system tray running")

// maxTrayDepth bounds the search for embedded icons below the tray window.
// Some trays wrap every icon in a container window.
const maxTrayDepth = 3

// TrayIcon is a client window embedded in the system tray.
type TrayIcon struct {
	Window   xproto.Window
	Geometry Geometry
	PID      int
	Instance string
	Class    string
	Title    string
	Viewable bool
}

// TrayOwner returns the window owning _NET_SYSTEM_TRAY_S<screen>.
func (c *Connection) TrayOwner() (xproto.Window, error) {
	atom, err := xprop.Atm(c.XUtil, fmt.Sprintf("_NET_SYSTEM_TRAY_S%d", c.Screen))
	if err != nil {
		return 0, fmt.Errorf("intern tray selection: %w", err)
	}
	reply, err := xproto.GetSelectionOwner(c.XUtil.Conn(), atom).Reply()
	if err != nil {
		return 0, fmt.Errorf("get tray selection owner: %w", err)
	}
	if reply.Owner == 0 {
		return 0, ErrNoTray
	}
	return reply.Owner, nil
}

// TrayIconWindows returns the embedded icon windows, sorted left to right.
func (c *Connection) TrayIconWindows() ([]xproto.Window, error) {
	icons, err := c.TrayIcons()
	if err != nil {
		return nil, err
	}
	ids := make([]xproto.Window, 0, len(icons))
	for _, icon := range icons {
		ids = append(ids, icon.Window)
	}
	return ids, nil
}

// TrayIcons returns every embedded icon, sorted left to right.
func (c *Connection) TrayIcons() ([]TrayIcon, error) {
	owner, err := c.TrayOwner()
	if err != nil {
		return nil, err
	}

	var windows []xproto.Window
	c.collectEmbedded(owner, 0, &windows)

	icons := make([]TrayIcon, 0, len(windows))
	for _, w := range windows {
		geom, err := c.WindowGeometry(w)
		if err != nil {
			continue
		}
		instance, class := c.WindowClass(w)
		icons = append(icons, TrayIcon{
			Window:   w,
			Geometry: geom,
			PID:      c.WindowPID(w),
			Instance: instance,
			Class:    class,
			Title:    c.WindowTitle(w),
			Viewable: c.IsViewable(w),
		})
	}

	sort.SliceStable(icons, func(i, j int) bool {
		if icons[i].Geometry.X != icons[j].Geometry.X {
			return icons[i].Geometry.X < icons[j].Geometry.X
		}
		return icons[i].Geometry.Y < icons[j].Geometry.Y
	})
	return icons, nil
}

func (c *Connection) collectEmbedded(parent xproto.Window, depth int, out *[]xproto.Window) {
	if depth >= maxTrayDepth {
		return
	}
	tree, err := xproto.QueryTree(c.XUtil.Conn(), parent).Reply()
	if err != nil {
		return
	}
	for _, child := range tree.Children {
		if c.isEmbedded(child) {
			*out = append(*out, child)
			continue
		}
		c.collectEmbedded(child, depth+1, out)
	}
}

func (c *Connection) isEmbedded(windowID xproto.Window) bool {
	_, err := xprop.GetProperty(c.XUtil, windowID, "_XEMBED_INFO")
	return err == nil
}
