package highlight

import "github.com/colonyops/phyline/internal/core/linemap"

// Tracker holds the hover state of one viewing session. It remembers which
// index the highlight was computed against and drops the highlight as soon as
// a different index is in use.
type Tracker struct {
	generation uint64
	line       int
	side       Side
	current    Highlight
	active     bool
}

// Hover records a pointer over line on side and returns the projection.
func (t *Tracker) Hover(idx *linemap.Index, line int, side Side) Highlight {
	t.generation = idx.Generation()
	t.line = line
	t.side = side
	t.current = Project(idx, line, side)
	t.active = true
	return t.current
}

// Leave clears the hover state, e.g. when the pointer leaves the view.
func (t *Tracker) Leave() {
	*t = Tracker{}
}

// Current returns the active highlight if it was computed against idx.
// A mismatched generation resets the tracker.
func (t *Tracker) Current(idx *linemap.Index) Highlight {
	if !t.active {
		return Highlight{}
	}
	if idx.Generation() != t.generation {
		t.Leave()
		return Highlight{}
	}
	return t.current
}

// Hovered returns the line and side under the pointer.
func (t *Tracker) Hovered() (line int, side Side, ok bool) {
	return t.line, t.side, t.active
}
