package menubar

import (
	"fmt"
	"strings"
)

// Section is a visibility group of items.
type Section int

const (
	SectionVisible Section = iota
	SectionHidden
	SectionAlwaysHidden
)

// Sections lists every section in classification order.
var Sections = []Section{SectionVisible, SectionHidden, SectionAlwaysHidden}

func (s Section) String() string {
	switch s {
	case SectionVisible:
		return "visible"
	case SectionHidden:
		return "hidden"
	case SectionAlwaysHidden:
		return "always-hidden"
	default:
		return fmt.Sprintf("section(%d)", int(s))
	}
}

// ParseSection parses a section name.
func ParseSection(s string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visible":
		return SectionVisible, nil
	case "hidden":
		return SectionHidden, nil
	case "always-hidden", "always_hidden", "alwayshidden":
		return SectionAlwaysHidden, nil
	default:
		return 0, fmt.Errorf("unknown section %q", s)
	}
}
