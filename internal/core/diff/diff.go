// Package diff computes line-oriented change sets between two versions of the
// rendered human text.
package diff

import (
	"fmt"
	"strings"

	"github.com/colonyops/phyline/internal/core/phy"
)

// ChangeType classifies a diff entry.
type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// Entry is one contiguous run of changed lines.
//
// LineRange is in the edited text for added and modified entries and in the
// original text for removed entries. OriginalRange is the span of original
// lines replaced or removed and is nil for added entries. Anchor is only set
// for added entries: the original line the new lines follow, 0 for the top.
type Entry struct {
	Type            ChangeType     `json:"type"`
	LineRange       phy.LineRange  `json:"lineRange"`
	OriginalRange   *phy.LineRange `json:"originalRange,omitempty"`
	Anchor          int            `json:"anchor,omitempty"`
	OriginalContent string         `json:"originalContent,omitempty"`
	ModifiedContent string         `json:"modifiedContent,omitempty"`
	Description     string         `json:"description"`
}

// OriginalLines returns the original lines the entry replaces or removes.
func (e Entry) OriginalLines() []string {
	if e.Type == Added {
		return nil
	}
	return strings.Split(e.OriginalContent, "\n")
}

// ModifiedLines returns the lines the entry introduces.
func (e Entry) ModifiedLines() []string {
	if e.Type == Removed {
		return nil
	}
	return strings.Split(e.ModifiedContent, "\n")
}

// Model is the ordered set of changes between two texts.
type Model struct {
	Entries []Entry `json:"entries"`
}

// Empty reports whether the texts were identical.
func (m Model) Empty() bool {
	return len(m.Entries) == 0
}

// Len returns the number of entries.
func (m Model) Len() int {
	return len(m.Entries)
}

// SplitLines splits text into lines. CRLF is normalized, a single trailing
// newline terminates the last line and the empty string has no lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// Compute diffs original against edited. The alignment keeps the largest
// possible number of unchanged lines and, among those, produces the fewest
// entries.
func Compute(original, edited string) Model {
	a := SplitLines(original)
	b := SplitLines(edited)

	var (
		model Model
		oi    int // lines of a consumed
		ei    int // lines of b consumed
		del   []string
		ins   []string
	)

	flush := func() {
		if len(del) == 0 && len(ins) == 0 {
			return
		}
		model.Entries = append(model.Entries, newEntry(oi-len(del), ei-len(ins), del, ins))
		del, ins = nil, nil
	}

	for _, o := range align(a, b) {
		switch o {
		case opMatch:
			flush()
			oi++
			ei++
		case opDelete:
			del = append(del, a[oi])
			oi++
		case opInsert:
			ins = append(ins, b[ei])
			ei++
		}
	}
	flush()

	return model
}

// newEntry builds an entry for a run that starts after origBefore original
// lines and editBefore edited lines.
func newEntry(origBefore, editBefore int, del, ins []string) Entry {
	origRange := phy.LineRange{Start: origBefore + 1, End: origBefore + len(del)}
	editRange := phy.LineRange{Start: editBefore + 1, End: editBefore + len(ins)}

	switch {
	case len(ins) == 0:
		return Entry{
			Type:            Removed,
			LineRange:       origRange,
			OriginalRange:   &origRange,
			OriginalContent: strings.Join(del, "\n"),
			Description:     fmt.Sprintf("removed %s", describe(origRange)),
		}
	case len(del) == 0:
		desc := fmt.Sprintf("added %s at the top", describe(editRange))
		if origBefore > 0 {
			desc = fmt.Sprintf("added %s after original line %d", describe(editRange), origBefore)
		}
		return Entry{
			Type:            Added,
			LineRange:       editRange,
			Anchor:          origBefore,
			ModifiedContent: strings.Join(ins, "\n"),
			Description:     desc,
		}
	default:
		return Entry{
			Type:            Modified,
			LineRange:       editRange,
			OriginalRange:   &origRange,
			OriginalContent: strings.Join(del, "\n"),
			ModifiedContent: strings.Join(ins, "\n"),
			Description:     fmt.Sprintf("modified %s (was %s)", describe(editRange), describe(origRange)),
		}
	}
}

func describe(r phy.LineRange) string {
	if r.Start == r.End {
		return fmt.Sprintf("line %d", r.Start)
	}
	return fmt.Sprintf("lines %d-%d", r.Start, r.End)
}
