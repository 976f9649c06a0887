// Package event models synthetic input events and the tap dispatcher used
// to confirm that a posted event was processed before the caller moves on.
package event

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/1broseidon/traytile/internal/platform"
)

// Type identifies the kind of input event.
type Type int

const (
	TypeNull Type = iota
	TypeLeftMouseDown
	TypeLeftMouseUp
	TypeRightMouseDown
	TypeRightMouseUp
	TypeOtherMouseDown
	TypeOtherMouseUp
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeLeftMouseDown:
		return "leftMouseDown"
	case TypeLeftMouseUp:
		return "leftMouseUp"
	case TypeRightMouseDown:
		return "rightMouseDown"
	case TypeRightMouseUp:
		return "rightMouseUp"
	case TypeOtherMouseDown:
		return "otherMouseDown"
	case TypeOtherMouseUp:
		return "otherMouseUp"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// IsButtonDown reports whether t presses a mouse button.
func (t Type) IsButtonDown() bool {
	return t == TypeLeftMouseDown || t == TypeRightMouseDown || t == TypeOtherMouseDown
}

// IsButtonUp reports whether t releases a mouse button.
func (t Type) IsButtonUp() bool {
	return t == TypeLeftMouseUp || t == TypeRightMouseUp || t == TypeOtherMouseUp
}

// Button is a mouse button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonCenter
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonCenter:
		return "center"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ParseButton converts a button name to a Button.
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "center", "middle":
		return ButtonCenter, nil
	default:
		return 0, fmt.Errorf("unknown mouse button %q", s)
	}
}

// DownType returns the button-press event type for b.
func (b Button) DownType() (Type, bool) {
	switch b {
	case ButtonLeft:
		return TypeLeftMouseDown, true
	case ButtonRight:
		return TypeRightMouseDown, true
	case ButtonCenter:
		return TypeOtherMouseDown, true
	default:
		return TypeNull, false
	}
}

// UpType returns the button-release event type for b.
func (b Button) UpType() (Type, bool) {
	switch b {
	case ButtonLeft:
		return TypeLeftMouseUp, true
	case ButtonRight:
		return TypeRightMouseUp, true
	case ButtonCenter:
		return TypeOtherMouseUp, true
	default:
		return TypeNull, false
	}
}

// Flags are modifier flags carried by an event.
type Flags uint

const (
	// FlagCommand holds the platform command modifier (Super on X11)
	// while the event is delivered.
	FlagCommand Flags = 1 << iota
)

// Field is an integer field attached to an event.
type Field int

const (
	FieldUserData Field = iota
	FieldTargetPID
	FieldWindowUnderPointer
	FieldWindowUnderPointerThatCanHandle
	FieldWindowID
	FieldClickState
)

// identifying fields compared by Matches.
var matchFields = [...]Field{
	FieldUserData,
	FieldWindowUnderPointer,
	FieldWindowUnderPointerThatCanHandle,
	FieldWindowID,
}

// Event is a synthetic input event.
type Event struct {
	Type     Type
	Location platform.Point
	Button   Button
	Flags    Flags

	fields map[Field]int64
}

// New creates an event of type t at loc.
func New(t Type, loc platform.Point, button Button) *Event {
	return &Event{Type: t, Location: loc, Button: button}
}

var nullCounter atomic.Int64

// UniqueNull returns a null event whose user-data field is unique within
// the process.
func UniqueNull() *Event {
	ev := New(TypeNull, platform.Point{}, ButtonLeft)
	ev.SetField(FieldUserData, nullCounter.Add(1))
	return ev
}

// Field returns the value of f, or zero when unset.
func (e *Event) Field(f Field) int64 {
	if e == nil || e.fields == nil {
		return 0
	}
	return e.fields[f]
}

// SetField sets f to v.
func (e *Event) SetField(f Field, v int64) {
	if e.fields == nil {
		e.fields = make(map[Field]int64)
	}
	e.fields[f] = v
}

// Matches reports whether e and other carry the same identifying fields.
// A posted event and the copy observed at its destination match.
func (e *Event) Matches(other *Event) bool {
	if e == nil || other == nil {
		return false
	}
	for _, f := range matchFields {
		if e.Field(f) != other.Field(f) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	c := *e
	if e.fields != nil {
		c.fields = make(map[Field]int64, len(e.fields))
		for k, v := range e.fields {
			c.fields[k] = v
		}
	}
	return &c
}

// TargetItem stamps the fields that route e to a menu bar item window
// owned by pid.
func (e *Event) TargetItem(windowID platform.WindowID, pid int) *Event {
	e.SetField(FieldTargetPID, int64(pid))
	e.SetField(FieldWindowUnderPointer, int64(windowID))
	e.SetField(FieldWindowUnderPointerThatCanHandle, int64(windowID))
	e.SetField(FieldWindowID, int64(windowID))
	return e
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@(%d,%d) window=%d pid=%d", e.Type, e.Location.X, e.Location.Y,
		e.Field(FieldWindowID), e.Field(FieldTargetPID))
}
