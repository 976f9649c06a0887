package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// Geometry is a window rectangle in root coordinates.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// WindowGeometry returns the window's position relative to the root window.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("get geometry of 0x%x: %w", windowID, err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("translate coordinates of 0x%x: %w", windowID, err)
	}

	return Geometry{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// IsViewable reports whether the window and all of its ancestors are mapped.
func (c *Connection) IsViewable(windowID xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// WindowPID returns the _NET_WM_PID of a window, or 0 when unset.
func (c *Connection) WindowPID(windowID xproto.Window) int {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0
	}
	return int(pid)
}

// WindowClass returns the WM_CLASS instance and class of a window.
func (c *Connection) WindowClass(windowID xproto.Window) (instance, class string) {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(wmClass.Instance), strings.TrimSpace(wmClass.Class)
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// IsPopupMenu reports whether a window is a transient menu: override-redirect
// windows and windows typed as popup, dropdown or plain menus.
func (c *Connection) IsPopupMenu(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err == nil {
		for _, t := range types {
			switch t {
			case "_NET_WM_WINDOW_TYPE_POPUP_MENU",
				"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
				"_NET_WM_WINDOW_TYPE_MENU":
				return true
			}
		}
	}

	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.OverrideRedirect
}

// TopLevelWindows returns the root's children in stacking order (bottom to
// top) together with any managed clients not directly parented to the root.
func (c *Connection) TopLevelWindows() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query root tree: %w", err)
	}

	seen := make(map[xproto.Window]bool, len(tree.Children))
	windows := make([]xproto.Window, 0, len(tree.Children))
	for _, w := range tree.Children {
		seen[w] = true
		windows = append(windows, w)
	}

	if clients, err := ewmh.ClientListGet(c.XUtil); err == nil {
		for _, w := range clients {
			if !seen[w] {
				seen[w] = true
				windows = append(windows, w)
			}
		}
	}
	return windows, nil
}

// TopLevelAncestor returns the ancestor of windowID that is a direct child of
// the root window.
func (c *Connection) TopLevelAncestor(windowID xproto.Window) (xproto.Window, error) {
	current := windowID
	for {
		tree, err := xproto.QueryTree(c.XUtil.Conn(), current).Reply()
		if err != nil {
			return 0, fmt.Errorf("query tree of 0x%x: %w", current, err)
		}
		if tree.Parent == c.Root || tree.Parent == 0 {
			return current, nil
		}
		current = tree.Parent
	}
}

// GetActiveWindow returns the EWMH active window.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
