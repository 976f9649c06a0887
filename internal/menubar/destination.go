package menubar

import (
	"context"
	"fmt"
)

// Direction says which side of the target a destination is on.
type Direction int

const (
	LeftOfItem Direction = iota
	RightOfItem
)

// Destination is a position relative to another item. It is resolved
// against live bounds when a move runs.
type Destination struct {
	Direction Direction
	Target    Item
}

// LeftOf returns the destination immediately left of target.
func LeftOf(target Item) Destination {
	return Destination{Direction: LeftOfItem, Target: target}
}

// RightOf returns the destination immediately right of target.
func RightOf(target Item) Destination {
	return Destination{Direction: RightOfItem, Target: target}
}

func (d Destination) String() string {
	if d.Direction == RightOfItem {
		return fmt.Sprintf("right of %s", d.Target)
	}
	return fmt.Sprintf("left of %s", d.Target)
}

// sectionDestination returns where an item lands when moved into s: the
// end of the section next to its marker.
func sectionDestination(items []Item, s Section) (Destination, error) {
	role := RoleHidden
	if s == SectionAlwaysHidden {
		role = RoleAlwaysHidden
	}
	for _, it := range items {
		if it.Role != role {
			continue
		}
		if s == SectionVisible {
			return RightOf(it), nil
		}
		return LeftOf(it), nil
	}
	return Destination{}, fmt.Errorf("%s control item: %w", role, ErrItemNotFound)
}

// MoveToSection moves item into section s.
func (m *Manager) MoveToSection(ctx context.Context, item Item, s Section) error {
	items, err := m.snapshot()
	if err != nil {
		return err
	}
	dest, err := sectionDestination(items, s)
	if err != nil {
		return err
	}
	return m.Move(ctx, item, dest)
}
