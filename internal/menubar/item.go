package menubar

import (
	"fmt"
	"strings"

	"github.com/1broseidon/traytile/internal/platform"
)

// Tag identifies an item across snapshots.
type Tag struct {
	Namespace string
	Title     string
}

func (t Tag) String() string {
	return t.Namespace + ":" + t.Title
}

// IsZero reports whether t is unset.
func (t Tag) IsZero() bool {
	return t.Namespace == "" && t.Title == ""
}

// ParseTag parses the "namespace:title" form produced by Tag.String.
func ParseTag(s string) (Tag, error) {
	ns, title, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || ns == "" {
		return Tag{}, fmt.Errorf("invalid item tag %q (want namespace:title)", s)
	}
	return Tag{Namespace: ns, Title: title}, nil
}

// ControlRole marks items that delimit sections instead of belonging to an
// application.
type ControlRole int

const (
	RoleNone ControlRole = iota
	RoleHidden
	RoleAlwaysHidden
	RoleVisible
)

func (r ControlRole) String() string {
	switch r {
	case RoleHidden:
		return "hidden"
	case RoleAlwaysHidden:
		return "always-hidden"
	case RoleVisible:
		return "visible"
	default:
		return "none"
	}
}

// Identity tells NewItem which tags are control items and which items are
// pinned in place.
type Identity struct {
	Hidden       Tag
	AlwaysHidden Tag
	Visible      Tag

	// Pinned items are never classified into a section.
	Pinned map[Tag]bool
}

func (id Identity) role(tag Tag) ControlRole {
	switch {
	case tag.IsZero():
		return RoleNone
	case tag == id.Hidden:
		return RoleHidden
	case tag == id.AlwaysHidden:
		return RoleAlwaysHidden
	case tag == id.Visible:
		return RoleVisible
	default:
		return RoleNone
	}
}

// Item is one menu bar item as seen in a single snapshot.
type Item struct {
	WindowID    platform.WindowID
	Tag         Tag
	OwnerPID    int
	SourcePID   int
	Bounds      platform.Rect
	IsMovable   bool
	CanBeHidden bool
	IsOnScreen  bool
	Role        ControlRole
}

// NewItem builds an Item from a window snapshot.
func NewItem(w platform.MenuBarWindow, id Identity) Item {
	tag := Tag{Namespace: w.Namespace, Title: w.Title}
	return Item{
		WindowID:    w.ID,
		Tag:         tag,
		OwnerPID:    w.OwnerPID,
		SourcePID:   w.SourcePID,
		Bounds:      w.Bounds,
		IsMovable:   w.IsMovable,
		CanBeHidden: !id.Pinned[tag],
		IsOnScreen:  w.IsOnScreen,
		Role:        id.role(tag),
	}
}

// NewItems converts a left-to-right window snapshot into items.
func NewItems(windows []platform.MenuBarWindow, id Identity) []Item {
	items := make([]Item, 0, len(windows))
	for _, w := range windows {
		items = append(items, NewItem(w, id))
	}
	return items
}

// IsControlItem reports whether the item delimits a section.
func (i Item) IsControlItem() bool {
	return i.Role != RoleNone
}

// EventPID is the process synthetic events for the item are addressed to.
func (i Item) EventPID() int {
	if i.SourcePID != 0 {
		return i.SourcePID
	}
	return i.OwnerPID
}

// DisplayName is the user-facing name of the item.
func (i Item) DisplayName() string {
	if i.Tag.Title != "" {
		return i.Tag.Title
	}
	return i.Tag.Namespace
}

func (i Item) String() string {
	return fmt.Sprintf("%s (window %d)", i.Tag, i.WindowID)
}

func indexOfTag(items []Item, tag Tag) int {
	for i := range items {
		if items[i].Tag == tag {
			return i
		}
	}
	return -1
}

func windowIDs(items []Item) []platform.WindowID {
	ids := make([]platform.WindowID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.WindowID)
	}
	return ids
}
