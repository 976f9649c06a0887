//go:build linux

package platform

import (
	"errors"
	"fmt"

	"github.com/1broseidon/traytile/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend
// and Pointer interfaces. Menu bar items are the icons embedded in the
// freedesktop system tray.
type LinuxBackend struct {
	conn *x11.Connection
}

var (
	_ Backend = (*LinuxBackend)(nil)
	_ Pointer = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Connection returns the underlying X11 connection.
func (b *LinuxBackend) Connection() *x11.Connection {
	if b == nil {
		return nil
	}
	return b.conn
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// ActiveMenuBarScreen returns the monitor hosting the tray. The panel area
// left of the tray plays the role of the application menu.
func (b *LinuxBackend) ActiveMenuBarScreen() (Screen, error) {
	conn, err := b.connection()
	if err != nil {
		return Screen{}, err
	}

	owner, err := conn.TrayOwner()
	if err != nil {
		return Screen{}, err
	}
	tray, err := conn.WindowGeometry(owner)
	if err != nil {
		return Screen{}, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return Screen{}, err
	}
	if len(monitors) == 0 {
		return Screen{}, errors.New("no monitors found")
	}
	mon, _ := x11.MonitorContaining(monitors, tray.X+tray.Width/2, tray.Y+tray.Height/2)

	screen := Screen{Display: displayFromMonitor(mon)}

	panel := tray
	if top, err := conn.TopLevelAncestor(owner); err == nil && top != owner {
		if g, err := conn.WindowGeometry(top); err == nil {
			panel = g
		}
	}
	width := tray.X - panel.X
	if width < 0 {
		width = 0
	}
	screen.ApplicationMenuFrame = Rect{X: panel.X, Y: panel.Y, Width: width, Height: panel.Height}
	return screen, nil
}

// MenuBarWindows returns the embedded tray icons, left to right.
func (b *LinuxBackend) MenuBarWindows(activeDesktopOnly bool) ([]MenuBarWindow, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	owner, err := conn.TrayOwner()
	if err != nil {
		return nil, err
	}
	ownerPID := conn.WindowPID(owner)

	icons, err := conn.TrayIcons()
	if err != nil {
		return nil, err
	}
	monitors, _ := conn.GetMonitors()
	onDesktop := desktopFilter(conn, activeDesktopOnly)

	windows := make([]MenuBarWindow, 0, len(icons))
	for _, icon := range icons {
		if onDesktop != nil && !onDesktop(WindowID(icon.Window)) {
			continue
		}

		namespace := icon.Class
		if namespace == "" {
			namespace = icon.Instance
		}
		bounds := rectFromGeometry(icon.Geometry)
		windows = append(windows, MenuBarWindow{
			ID:         WindowID(icon.Window),
			OwnerPID:   ownerPID,
			SourcePID:  icon.PID,
			Namespace:  namespace,
			Title:      icon.Title,
			Bounds:     bounds,
			IsOnScreen: icon.Viewable && onAnyMonitor(monitors, bounds),
			IsMovable:  true,
		})
	}
	return windows, nil
}

// MenuBarWindowIDs returns the ids of the embedded tray icons on the
// current desktop, left to right. It lists the same windows as
// MenuBarWindows(true).
func (b *LinuxBackend) MenuBarWindowIDs() ([]WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	wins, err := conn.TrayIconWindows()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, len(wins))
	for i, w := range wins {
		ids[i] = WindowID(w)
	}
	return keepWindows(ids, desktopFilter(conn, true)), nil
}

// desktopFilter keeps windows on the current desktop. It is nil when every
// window should be kept.
func desktopFilter(conn *x11.Connection, activeDesktopOnly bool) func(WindowID) bool {
	if !activeDesktopOnly {
		return nil
	}
	desktop, err := conn.GetCurrentDesktop()
	if err != nil {
		return nil
	}
	return func(id WindowID) bool {
		return conn.WindowOnDesktop(xproto.Window(id), desktop)
	}
}

// WindowBounds returns the current root-relative bounds of a window.
func (b *LinuxBackend) WindowBounds(windowID WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	geom, err := conn.WindowGeometry(xproto.Window(windowID))
	if err != nil {
		return Rect{}, fmt.Errorf("%w: %v", ErrNoBounds, err)
	}
	return rectFromGeometry(geom), nil
}

// OnScreenWindowIDs returns every viewable top-level window id.
func (b *LinuxBackend) OnScreenWindowIDs() ([]WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	wins, err := conn.TopLevelWindows()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, 0, len(wins))
	for _, w := range wins {
		if conn.IsViewable(w) {
			ids = append(ids, WindowID(w))
		}
	}
	return ids, nil
}

// OnScreenWindows returns every viewable top-level window.
func (b *LinuxBackend) OnScreenWindows() ([]WindowInfo, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	wins, err := conn.TopLevelWindows()
	if err != nil {
		return nil, err
	}

	activePID := conn.ActiveWindowPID()
	infos := make([]WindowInfo, 0, len(wins))
	for _, w := range wins {
		if !conn.IsViewable(w) {
			continue
		}
		info, ok := b.windowInfo(conn, w, activePID)
		if !ok {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Window returns a snapshot of one window, or false when it is gone.
func (b *LinuxBackend) Window(windowID WindowID) (WindowInfo, bool) {
	conn, err := b.connection()
	if err != nil {
		return WindowInfo{}, false
	}
	return b.windowInfo(conn, xproto.Window(windowID), conn.ActiveWindowPID())
}

// State samples the pointer.
func (b *LinuxBackend) State() (PointerState, error) {
	conn, err := b.connection()
	if err != nil {
		return PointerState{}, err
	}
	ps, err := conn.QueryPointer()
	if err != nil {
		return PointerState{}, err
	}
	return PointerState{
		Location:      Point{X: ps.X, Y: ps.Y},
		ButtonPressed: ps.Buttons,
		ModifierHeld:  ps.Mods,
	}, nil
}

// Hide hides the cursor.
func (b *LinuxBackend) Hide() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.HideCursor()
}

// Show shows the cursor.
func (b *LinuxBackend) Show() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.ShowCursor()
}

// Warp moves the pointer without generating synthetic input.
func (b *LinuxBackend) Warp(p Point) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.WarpPointer(p.X, p.Y)
}

func (b *LinuxBackend) windowInfo(conn *x11.Connection, w xproto.Window, activePID int) (WindowInfo, bool) {
	geom, err := conn.WindowGeometry(w)
	if err != nil {
		return WindowInfo{}, false
	}
	pid := conn.WindowPID(w)
	return WindowInfo{
		ID:          WindowID(w),
		OwnerPID:    pid,
		Bounds:      rectFromGeometry(geom),
		IsOnScreen:  conn.IsViewable(w),
		IsPopupMenu: conn.IsPopupMenu(w),
		OwnerActive: pid != 0 && pid == activePID,
	}, true
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("linux backend not connected")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	r := Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
	return Display{ID: m.ID, Name: m.Name, Bounds: r, Usable: r}
}

func rectFromGeometry(g x11.Geometry) Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

func onAnyMonitor(monitors []x11.Monitor, r Rect) bool {
	if len(monitors) == 0 {
		return true
	}
	c := r.Center()
	for _, m := range monitors {
		if m.Contains(c.X, c.Y) {
			return true
		}
	}
	return false
}
