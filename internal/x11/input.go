package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/keybind"
)

// X core button numbers.
const (
	ButtonLeft   byte = 1
	ButtonMiddle byte = 2
	ButtonRight  byte = 3
)

// FakeMotion moves the pointer through XTest so the server generates the
// same crossing events as real movement.
func (c *Connection) FakeMotion(x, y int) error {
	return xtest.FakeInputChecked(c.XUtil.Conn(), xproto.MotionNotify, 0, 0, c.Root, int16(x), int16(y), 0).Check()
}

// FakeButton presses or releases a pointer button.
func (c *Connection) FakeButton(button byte, press bool) error {
	kind := byte(xproto.ButtonRelease)
	if press {
		kind = xproto.ButtonPress
	}
	return xtest.FakeInputChecked(c.XUtil.Conn(), kind, button, 0, c.Root, 0, 0, 0).Check()
}

// FakeKey presses or releases the first keycode bound to keysym name.
func (c *Connection) FakeKey(name string, press bool) error {
	codes := keybind.StrToKeycodes(c.XUtil, name)
	if len(codes) == 0 {
		return fmt.Errorf("no keycode for %q", name)
	}
	kind := byte(xproto.KeyRelease)
	if press {
		kind = xproto.KeyPress
	}
	return xtest.FakeInputChecked(c.XUtil.Conn(), kind, byte(codes[0]), 0, c.Root, 0, 0, 0).Check()
}

// SetImpervious makes this client's synthetic input ignore server grabs.
func (c *Connection) SetImpervious(impervious bool) error {
	return xtest.GrabControlChecked(c.XUtil.Conn(), impervious).Check()
}
