// Package phy defines the human-readable tree ("PHY" document) that is rendered
// into display lines and mapped back onto the source file it was derived from.
package phy

import (
	"encoding/json"
	"fmt"
)

// Node is a single element of the human-readable tree. A node with neither a
// signature nor a description is a pure grouping node.
type Node struct {
	ID          string     `json:"id"`
	Type        string     `json:"type,omitempty"`
	Signature   string     `json:"signature,omitempty"`
	Description string     `json:"description,omitempty"`
	SourceRange *LineRange `json:"line_range,omitempty"`
	Children    []*Node    `json:"children,omitempty"`
}

// HasText reports whether the node contributes display lines of its own.
func (n *Node) HasText() bool {
	return n.Signature != "" || n.Description != ""
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		walk(child, depth+1, fn)
	}
}

// LineRange is an inclusive, 1-based line interval. It is encoded in JSON as a
// two element array to match the document format.
type LineRange struct {
	Start int
	End   int
}

// Span returns a LineRange, normalizing reversed bounds.
func Span(start, end int) LineRange {
	if end < start {
		start, end = end, start
	}
	return LineRange{Start: start, End: end}
}

// Valid reports whether the range is a usable 1-based inclusive interval.
func (r LineRange) Valid() bool {
	return r.Start >= 1 && r.End >= r.Start
}

// Len returns the number of lines covered by the range.
func (r LineRange) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// ContainsRange reports whether other lies entirely inside r.
func (r LineRange) ContainsRange(other LineRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps reports whether the two ranges share at least one line.
func (r LineRange) Overlaps(other LineRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Union returns the smallest range covering both r and other.
func (r LineRange) Union(other LineRange) LineRange {
	return LineRange{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

// Lines returns every line number in the range, in order.
func (r LineRange) Lines() []int {
	if !r.Valid() {
		return nil
	}
	lines := make([]int, 0, r.Len())
	for l := r.Start; l <= r.End; l++ {
		lines = append(lines, l)
	}
	return lines
}

func (r LineRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

func (r LineRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

func (r *LineRange) UnmarshalJSON(data []byte) error {
	var bounds []int
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("line range: %w", err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("line range: expected [start, end], got %d values", len(bounds))
	}
	r.Start, r.End = bounds[0], bounds[1]
	return nil
}
