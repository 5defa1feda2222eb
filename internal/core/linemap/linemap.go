// Package linemap provides the bidirectional index between rendered human
// lines and the source line ranges they were derived from.
package linemap

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
)

// ErrOverlappingRanges is returned by Build in strict mode when two unrelated
// nodes claim the same source line.
var ErrOverlappingRanges = errors.New("overlapping source ranges")

// Mapping records the provenance of one rendered line.
type Mapping struct {
	HumanLine   int           `json:"humanLine"`
	SourceRange phy.LineRange `json:"sourceRange"`
	NodeID      string        `json:"nodeId"`
}

// Overlap describes a source line claimed by two nodes where the later one is
// not nested inside the earlier one.
type Overlap struct {
	SourceLine int     `json:"sourceLine"`
	Previous   Mapping `json:"previous"`
	Current    Mapping `json:"current"`
}

// Index is an immutable view over the mappings of a single render pass. It is
// never patched; a changed tree gets a new index.
type Index struct {
	generation uint64
	mappings   []Mapping
	forward    map[int]Mapping
	reverse    map[int]int
	overlaps   []Overlap
}

var generations atomic.Uint64

type options struct {
	strict     bool
	isAncestor func(ancestor, descendant string) bool
	logger     zerolog.Logger
}

// Option configures Build.
type Option func(*options)

// WithStrictOverlaps makes Build fail with ErrOverlappingRanges instead of
// resolving overlaps last-write-wins.
func WithStrictOverlaps(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithAncestry supplies the tree's ancestry so a child range that refines its
// parent's range is not reported as an overlap. Typically phy.Arena.IsAncestor.
func WithAncestry(fn func(ancestor, descendant string) bool) Option {
	return func(o *options) { o.isAncestor = fn }
}

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Build constructs an index in a single pass over mappings. For the reverse
// direction every source line of every range is a key and a later node
// overwrites an earlier one, so a child's sub-range (recorded after its
// ancestor in pre-order) takes priority. Within one node the first emitted
// line wins.
func Build(mappings []Mapping, opts ...Option) (*Index, error) {
	o := options{logger: logging.Component("linemap")}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &Index{
		generation: generations.Add(1),
		mappings:   make([]Mapping, len(mappings)),
		forward:    make(map[int]Mapping, len(mappings)),
		reverse:    make(map[int]int),
	}
	copy(idx.mappings, mappings)

	for _, m := range mappings {
		idx.forward[m.HumanLine] = m

		for line := m.SourceRange.Start; line <= m.SourceRange.End; line++ {
			if prevLine, ok := idx.reverse[line]; ok {
				prev := idx.forward[prevLine]
				if prev.NodeID == m.NodeID && prev.SourceRange == m.SourceRange {
					// a node's own continuation lines resolve to its first line
					continue
				}
				if !o.nested(prev, m) {
					idx.overlaps = append(idx.overlaps, Overlap{SourceLine: line, Previous: prev, Current: m})
				}
			}
			idx.reverse[line] = m.HumanLine
		}
	}

	if len(idx.overlaps) > 0 {
		first := idx.overlaps[0]
		o.logger.Warn().
			Int("overlaps", len(idx.overlaps)).
			Int("source_line", first.SourceLine).
			Str("previous_node", first.Previous.NodeID).
			Str("current_node", first.Current.NodeID).
			Msg("source ranges claimed by unrelated nodes")

		if o.strict {
			return nil, fmt.Errorf("%w: source line %d claimed by %q and %q",
				ErrOverlappingRanges, first.SourceLine, first.Previous.NodeID, first.Current.NodeID)
		}
	}

	return idx, nil
}

// nested reports whether cur belongs to a descendant of prev's node.
func (o options) nested(prev, cur Mapping) bool {
	if o.isAncestor != nil {
		return o.isAncestor(prev.NodeID, cur.NodeID)
	}
	return prev.SourceRange.ContainsRange(cur.SourceRange)
}

// Empty returns an index with no mappings, used when the text is treated as an
// opaque, unmapped blob.
func Empty() *Index {
	idx, _ := Build(nil)
	return idx
}

// Generation identifies the render pass the index was built from. Two indexes
// never share a generation.
func (idx *Index) Generation() uint64 {
	if idx == nil {
		return 0
	}
	return idx.generation
}

// SourceRangeFor returns the source range a human line was derived from.
func (idx *Index) SourceRangeFor(humanLine int) (phy.LineRange, bool) {
	if idx == nil {
		return phy.LineRange{}, false
	}
	m, ok := idx.forward[humanLine]
	return m.SourceRange, ok
}

// HumanLineFor returns the human line that a source line resolves to.
func (idx *Index) HumanLineFor(sourceLine int) (int, bool) {
	if idx == nil {
		return 0, false
	}
	h, ok := idx.reverse[sourceLine]
	return h, ok
}

// NodeFor returns the id of the node that produced a human line.
func (idx *Index) NodeFor(humanLine int) (string, bool) {
	if idx == nil {
		return "", false
	}
	m, ok := idx.forward[humanLine]
	return m.NodeID, ok
}

// Mapping returns the full mapping record for a human line.
func (idx *Index) Mapping(humanLine int) (Mapping, bool) {
	if idx == nil {
		return Mapping{}, false
	}
	m, ok := idx.forward[humanLine]
	return m, ok
}

// Mappings returns a copy of the mappings the index was built from.
func (idx *Index) Mappings() []Mapping {
	if idx == nil {
		return nil
	}
	out := make([]Mapping, len(idx.mappings))
	copy(out, idx.mappings)
	return out
}

// Len returns the number of mapped human lines.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.forward)
}

// Overlaps returns the overlaps detected while building.
func (idx *Index) Overlaps() []Overlap {
	if idx == nil {
		return nil
	}
	return idx.overlaps
}
