package reconcile

import (
	"slices"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/phy"
)

// Edit is a diff entry resolved to the source lines it affects.
type Edit struct {
	Entry       diff.Entry    `json:"entry"`
	SourceRange phy.LineRange `json:"sourceRange"`
	NodeIDs     []string      `json:"nodeIds"`
	HumanLines  []int         `json:"humanLines"`
	Replacement string        `json:"replacement"`
}

// Resolution splits a diff into edits that map onto the source and entries
// that do not.
type Resolution struct {
	Edits      []Edit       `json:"edits"`
	Unmappable []diff.Entry `json:"unmappable,omitempty"`
}

// Resolved reports whether every entry mapped.
func (r Resolution) Resolved() bool {
	return len(r.Unmappable) == 0
}

// AffectedLines returns the original human lines an entry touches. Removed
// and modified entries touch their original range. Added entries touch the
// line they were inserted after, or the first line when inserted at the top.
func AffectedLines(e diff.Entry) []int {
	if e.OriginalRange != nil {
		return e.OriginalRange.Lines()
	}
	if e.Anchor > 0 {
		return []int{e.Anchor}
	}
	return []int{1}
}

// Resolve maps every entry of model through idx. An entry resolves only when
// all of its affected lines are mapped; its source range is the union of their
// ranges.
func Resolve(model diff.Model, idx *linemap.Index) Resolution {
	var res Resolution

	for _, entry := range model.Entries {
		lines := AffectedLines(entry)

		var (
			span     phy.LineRange
			nodes    []string
			resolved = true
		)
		for i, line := range lines {
			m, ok := idx.Mapping(line)
			if !ok {
				resolved = false
				break
			}
			if i == 0 {
				span = m.SourceRange
			} else {
				span = span.Union(m.SourceRange)
			}
			if !slices.Contains(nodes, m.NodeID) {
				nodes = append(nodes, m.NodeID)
			}
		}

		if !resolved {
			res.Unmappable = append(res.Unmappable, entry)
			continue
		}

		res.Edits = append(res.Edits, Edit{
			Entry:       entry,
			SourceRange: span,
			NodeIDs:     nodes,
			HumanLines:  lines,
			Replacement: entry.ModifiedContent,
		})
	}

	return res
}
