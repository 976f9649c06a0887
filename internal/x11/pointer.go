package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// PointerState is the pointer position in root coordinates plus the held
// buttons and modifiers.
type PointerState struct {
	X       int
	Y       int
	Buttons bool
	Mods    bool
}

const (
	buttonMask   = xproto.KeyButMaskButton1 | xproto.KeyButMaskButton2 | xproto.KeyButMaskButton3 | xproto.KeyButMaskButton4 | xproto.KeyButMaskButton5
	modifierMask = xproto.KeyButMaskShift | xproto.KeyButMaskControl | xproto.KeyButMaskMod1 | xproto.KeyButMaskMod4
)

// QueryPointer returns the current pointer state.
func (c *Connection) QueryPointer() (PointerState, error) {
	reply, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return PointerState{}, fmt.Errorf("query pointer: %w", err)
	}
	return PointerState{
		X:       int(reply.RootX),
		Y:       int(reply.RootY),
		Buttons: reply.Mask&buttonMask != 0,
		Mods:    reply.Mask&modifierMask != 0,
	}, nil
}

// WarpPointer moves the pointer to (x, y) in root coordinates.
func (c *Connection) WarpPointer(x, y int) error {
	return xproto.WarpPointerChecked(c.XUtil.Conn(), 0, c.Root, 0, 0, 0, 0, int16(x), int16(y)).Check()
}

// HideCursor hides the cursor until ShowCursor is called.
func (c *Connection) HideCursor() error {
	return xfixes.HideCursorChecked(c.XUtil.Conn(), c.Root).Check()
}

// ShowCursor undoes HideCursor.
func (c *Connection) ShowCursor() error {
	return xfixes.ShowCursorChecked(c.XUtil.Conn(), c.Root).Check()
}
