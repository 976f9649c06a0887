package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// Screen is the default screen number, used to find the tray selection.
	Screen int
}

// NewConnection establishes a connection to the X11 server and initializes
// the XTest and XFixes extensions.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Keycode lookup for the command modifier needs the keyboard mapping.
	keybind.Initialize(xu)

	if err := xtest.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("xtest init failed: %w", err)
	}
	if err := xfixes.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("xfixes init failed: %w", err)
	}
	// XFixes requires a version handshake before cursor requests.
	if _, err := xfixes.QueryVersion(xu.Conn(), 4, 0).Reply(); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("xfixes version query failed: %w", err)
	}

	return &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		Screen: xu.Conn().DefaultScreen,
	}, nil
}

// Sync blocks until the server has processed every request sent so far.
func (c *Connection) Sync() error {
	_, err := xproto.GetInputFocus(c.XUtil.Conn()).Reply()
	return err
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
