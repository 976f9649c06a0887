package event

import "fmt"

// LocationKind selects where in the delivery path a tap sits or an event is
// posted.
type LocationKind int

const (
	// LocationSession is the entry point for all synthetic input.
	LocationSession LocationKind = iota
	// LocationPID is the delivery point for one process.
	LocationPID
)

// Location is a point in the delivery path.
type Location struct {
	Kind LocationKind
	PID  int
}

// Session returns the session entry location.
func Session() Location { return Location{Kind: LocationSession} }

// PID returns the delivery location for pid.
func PID(pid int) Location { return Location{Kind: LocationPID, PID: pid} }

func (l Location) String() string {
	if l.Kind == LocationPID {
		return fmt.Sprintf("pid:%d", l.PID)
	}
	return "session"
}

// Placement orders a tap relative to other taps at the same location.
type Placement int

const (
	HeadInsert Placement = iota
	TailAppend
)

// TapSpec describes a tap to install.
type TapSpec struct {
	Label     string
	Location  Location
	Types     []Type
	Placement Placement

	// ListenOnly taps observe events after delivery and cannot alter them.
	ListenOnly bool
}

func (s TapSpec) handles(t Type) bool {
	for _, want := range s.Types {
		if want == t {
			return true
		}
	}
	return false
}

// Tap is an installed interception point. Taps are created disabled.
// Disable is final.
type Tap interface {
	Enable()
	Disable()
}

// TapFunc handles an event seen by a tap. Returning nil swallows the event.
// The return value of a listen-only tap is ignored.
type TapFunc func(tap Tap, ev *Event) *Event

// Dispatcher installs taps and posts events into the delivery path.
type Dispatcher interface {
	NewTap(spec TapSpec, fn TapFunc) (Tap, error)
	Post(ev *Event, loc Location) error
}

// Sink delivers events that survive the taps to the window system.
type Sink interface {
	Deliver(ev *Event, loc Location) error
}
