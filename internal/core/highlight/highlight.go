// Package highlight projects a hovered line on one panel onto the lines to
// highlight on the other panel.
package highlight

import (
	"fmt"
	"slices"

	"github.com/colonyops/phyline/internal/core/linemap"
)

// Side names a panel of the side-by-side view.
type Side string

const (
	SideHuman  Side = "human"
	SideSource Side = "source"
)

// Opposite returns the other panel.
func (s Side) Opposite() Side {
	if s == SideHuman {
		return SideSource
	}
	return SideHuman
}

// ParseSide accepts "human" or "source".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideHuman, SideSource:
		return Side(s), nil
	default:
		return "", fmt.Errorf("invalid side %q: expected %q or %q", s, SideHuman, SideSource)
	}
}

// Highlight is the set of lines to mark on Side. Lines are ascending.
type Highlight struct {
	Side  Side  `json:"side"`
	Lines []int `json:"lines"`
}

// Empty reports whether nothing is highlighted.
func (h Highlight) Empty() bool {
	return len(h.Lines) == 0
}

// Contains reports whether line is highlighted.
func (h Highlight) Contains(line int) bool {
	_, found := slices.BinarySearch(h.Lines, line)
	return found
}

// Project resolves a hover over line on side. Hovering a human line highlights
// every line of its source range; hovering a source line highlights the single
// human line it resolves to. Unmapped lines and a nil index yield an empty
// highlight.
func Project(idx *linemap.Index, line int, side Side) Highlight {
	out := Highlight{Side: side.Opposite()}

	switch side {
	case SideHuman:
		if r, ok := idx.SourceRangeFor(line); ok {
			out.Lines = r.Lines()
		}
	case SideSource:
		if h, ok := idx.HumanLineFor(line); ok {
			out.Lines = []int{h}
		}
	}

	return out
}
