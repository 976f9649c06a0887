package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const (
	systemTrayRequestDock = 0
	xembedMapped          = 1
)

// DockControlItem creates a small window named title with WM_CLASS class and
// asks the tray to embed it. The window is the marker the daemon uses to
// delimit a section.
func (c *Connection) DockControlItem(class, title string, width, height int) (xproto.Window, error) {
	owner, err := c.TrayOwner()
	if err != nil {
		return 0, err
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("generate window id: %w", err)
	}
	if err := win.CreateChecked(c.Root, 0, 0, width, height, xproto.CwBackPixel, 0); err != nil {
		return 0, fmt.Errorf("create control item window: %w", err)
	}

	if err := icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{Instance: class, Class: class}); err != nil {
		return 0, fmt.Errorf("set WM_CLASS: %w", err)
	}
	if err := ewmh.WmNameSet(c.XUtil, win.Id, title); err != nil {
		return 0, fmt.Errorf("set _NET_WM_NAME: %w", err)
	}
	if err := icccm.WmNameSet(c.XUtil, win.Id, title); err != nil {
		return 0, fmt.Errorf("set WM_NAME: %w", err)
	}
	if err := ewmh.WmPidSet(c.XUtil, win.Id, uint(os.Getpid())); err != nil {
		return 0, fmt.Errorf("set _NET_WM_PID: %w", err)
	}
	if err := xprop.ChangeProp32(c.XUtil, win.Id, "_XEMBED_INFO", "_XEMBED_INFO", 0, xembedMapped); err != nil {
		return 0, fmt.Errorf("set _XEMBED_INFO: %w", err)
	}

	// Build the dock request manually, same as the other client messages.
	opcode, err := xprop.Atm(c.XUtil, "_NET_SYSTEM_TRAY_OPCODE")
	if err != nil {
		return 0, fmt.Errorf("intern _NET_SYSTEM_TRAY_OPCODE: %w", err)
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: owner,
		Type:   opcode,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			xproto.TimeCurrentTime, systemTrayRequestDock, uint32(win.Id), 0, 0,
		}),
	}
	err = xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		owner,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
	if err != nil {
		return 0, fmt.Errorf("send dock request: %w", err)
	}
	return win.Id, nil
}

// DestroyWindow destroys a window created by this connection.
func (c *Connection) DestroyWindow(windowID xproto.Window) {
	xproto.DestroyWindow(c.XUtil.Conn(), windowID)
}
