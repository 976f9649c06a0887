package platform

import "errors"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// ErrNoBounds is returned when a window no longer has on-screen geometry.
var ErrNoBounds = errors.New("window has no bounds")

// keepWindows filters ids in place, preserving order. A nil keep retains
// every id.
func keepWindows(ids []WindowID, keep func(WindowID) bool) []WindowID {
	if keep == nil {
		return ids
	}
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// Point is a location in screen coordinates.
type Point struct {
	X int
	Y int
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// MinX returns the left edge.
func (r Rect) MinX() int { return r.X }

// MaxX returns the right edge.
func (r Rect) MaxX() int { return r.X + r.Width }

// MinY returns the top edge.
func (r Rect) MinY() int { return r.Y }

// Center returns the center point, rounded toward the origin.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Screen describes the display hosting the active menu bar.
type Screen struct {
	Display Display

	// ApplicationMenuFrame is the region of the bar reserved for the
	// focused application. Items must stay right of its right edge.
	ApplicationMenuFrame Rect

	// Notch is the camera housing cut-out, when HasNotch is set.
	Notch    Rect
	HasNotch bool
}

// MenuBarWindow is the raw window-system view of one menu bar item.
type MenuBarWindow struct {
	ID WindowID

	// OwnerPID is the process that owns the item's window.
	OwnerPID int

	// SourcePID is the process that created the item when OwnerPID is a
	// proxy (for example a tray host forwarding for another client).
	// Zero when unknown.
	SourcePID int

	// Namespace and Title identify the item across snapshots.
	Namespace string
	Title     string

	Bounds     Rect
	IsOnScreen bool
	IsMovable  bool
}

// WindowInfo is a snapshot of an arbitrary top-level or popup window.
type WindowInfo struct {
	ID          WindowID
	OwnerPID    int
	Bounds      Rect
	IsOnScreen  bool
	IsPopupMenu bool

	// OwnerActive reports whether the owning application holds focus.
	OwnerActive bool
}

// PointerState is a sampled pointer position plus held buttons/modifiers.
type PointerState struct {
	Location      Point
	ButtonPressed bool
	ModifierHeld  bool
}

// Backend abstracts the window-system queries needed to manage menu bar
// items. Every item or window id list is ordered left to right.
type Backend interface {
	ActiveMenuBarScreen() (Screen, error)
	MenuBarWindows(activeDesktopOnly bool) ([]MenuBarWindow, error)
	MenuBarWindowIDs() ([]WindowID, error)
	WindowBounds(windowID WindowID) (Rect, error)
	OnScreenWindowIDs() ([]WindowID, error)
	OnScreenWindows() ([]WindowInfo, error)
	Window(windowID WindowID) (WindowInfo, bool)
}

// Pointer controls the system pointer.
type Pointer interface {
	State() (PointerState, error)
	Hide() error
	Show() error
	Warp(p Point) error
}
