package menubar

import (
	"github.com/1broseidon/traytile/internal/platform"
)

// NoDisplay is the display id of a cache captured without an active screen.
const NoDisplay = -1

// ItemCache maps each section to its items in left-to-right order. A
// published cache is never mutated; accessors return copies.
type ItemCache struct {
	DisplayID int
	sections  map[Section][]Item
}

// NewItemCache returns an empty cache for displayID.
func NewItemCache(displayID int) ItemCache {
	return ItemCache{DisplayID: displayID, sections: make(map[Section][]Item)}
}

// Items returns the items in section s.
func (c ItemCache) Items(s Section) []Item {
	return append([]Item(nil), c.sections[s]...)
}

// AllItems returns every cached item, left to right.
func (c ItemCache) AllItems() []Item {
	var all []Item
	for _, s := range []Section{SectionAlwaysHidden, SectionHidden, SectionVisible} {
		all = append(all, c.sections[s]...)
	}
	return all
}

// ManagedItems returns the cached items that belong to applications.
func (c ItemCache) ManagedItems() []Item {
	var managed []Item
	for _, it := range c.AllItems() {
		if !it.IsControlItem() {
			managed = append(managed, it)
		}
	}
	return managed
}

// Len returns the number of cached items.
func (c ItemCache) Len() int {
	n := 0
	for _, items := range c.sections {
		n += len(items)
	}
	return n
}

// Address returns the section and index of the item with tag.
func (c ItemCache) Address(tag Tag) (Section, int, bool) {
	for _, s := range Sections {
		if i := indexOfTag(c.sections[s], tag); i >= 0 {
			return s, i, true
		}
	}
	return 0, 0, false
}

// Find returns the cached item with tag.
func (c ItemCache) Find(tag Tag) (Item, bool) {
	s, i, ok := c.Address(tag)
	if !ok {
		return Item{}, false
	}
	return c.sections[s][i], true
}

func (c *ItemCache) append(s Section, item Item) {
	if c.sections == nil {
		c.sections = make(map[Section][]Item)
	}
	c.sections[s] = append(c.sections[s], item)
}

func (c *ItemCache) insertAt(s Section, index int, item Item) {
	if c.sections == nil {
		c.sections = make(map[Section][]Item)
	}
	items := c.sections[s]
	index = max(0, min(index, len(items)))
	items = append(items, Item{})
	copy(items[index+1:], items[index:])
	items[index] = item
	c.sections[s] = items
}

// Insert places item at dest. A control item target selects the edge of
// the adjacent section; any other target must already be cached.
func (c *ItemCache) Insert(item Item, dest Destination) {
	switch dest.Target.Role {
	case RoleHidden:
		if dest.Direction == LeftOfItem {
			c.append(SectionHidden, item)
		} else {
			c.insertAt(SectionVisible, 0, item)
		}
		return
	case RoleAlwaysHidden:
		if dest.Direction == LeftOfItem {
			c.append(SectionAlwaysHidden, item)
		} else {
			c.insertAt(SectionHidden, 0, item)
		}
		return
	}

	s, index, ok := c.Address(dest.Target.Tag)
	if !ok {
		return
	}
	if dest.Direction == RightOfItem {
		index++
	}
	c.insertAt(s, index, item)
}

// ControlItemPair holds the section markers taken out of a snapshot.
type ControlItemPair struct {
	Hidden       Item
	AlwaysHidden *Item
}

// extractControlItems removes the hidden and always-hidden markers from
// items. ok is false when the hidden marker is missing.
func extractControlItems(items []Item) (pair ControlItemPair, rest []Item, ok bool) {
	rest = make([]Item, 0, len(items))
	var hidden, alwaysHidden *Item
	for i := range items {
		it := items[i]
		switch {
		case it.Role == RoleHidden && hidden == nil:
			hidden = &it
		case it.Role == RoleAlwaysHidden && alwaysHidden == nil:
			alwaysHidden = &it
		default:
			rest = append(rest, it)
		}
	}
	if hidden == nil {
		return ControlItemPair{}, items, false
	}
	return ControlItemPair{Hidden: *hidden, AlwaysHidden: alwaysHidden}, rest, true
}

// classifier assigns items to sections using the marker bounds captured
// once per cache pass.
type classifier struct {
	hidden       platform.Rect
	alwaysHidden *platform.Rect
	bounds       func(Item) platform.Rect
}

func isValidForCaching(item Item) bool {
	if !item.CanBeHidden {
		return false
	}
	if item.IsControlItem() && item.Role != RoleVisible {
		return false
	}
	return true
}

// section returns the first section, in classification order, whose
// geometric condition the item meets. Edges are inclusive.
func (c classifier) section(item Item) (Section, bool) {
	b := c.bounds(item)
	for _, s := range Sections {
		switch s {
		case SectionVisible:
			if b.MinX() >= c.hidden.MaxX() {
				return s, true
			}
		case SectionHidden:
			if b.MaxX() > c.hidden.MinX() {
				continue
			}
			if c.alwaysHidden == nil || b.MinX() >= c.alwaysHidden.MaxX() {
				return s, true
			}
		case SectionAlwaysHidden:
			if c.alwaysHidden != nil && b.MaxX() <= c.alwaysHidden.MinX() {
				return s, true
			}
		}
	}
	return 0, false
}
