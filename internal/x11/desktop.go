package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// GetCurrentDesktop returns the current desktop index
func (c *Connection) GetCurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// WindowOnDesktop reports whether a window is shown on desktop. Windows
// without _NET_WM_DESKTOP and sticky windows are on every desktop.
func (c *Connection) WindowOnDesktop(windowID xproto.Window, desktop int) bool {
	d, err := ewmh.WmDesktopGet(c.XUtil, windowID)
	if err != nil {
		return true
	}
	return d == 0xFFFFFFFF || int(d) == desktop
}

// ActiveWindowPID returns the pid owning the active window, or 0.
func (c *Connection) ActiveWindowPID() int {
	win, err := c.GetActiveWindow()
	if err != nil || win == 0 {
		return 0
	}
	return c.WindowPID(win)
}
