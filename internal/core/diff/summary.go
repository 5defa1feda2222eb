package diff

import (
	"fmt"
	"strings"
)

// Summary counts the changes of a model.
type Summary struct {
	Entries      int `json:"entries"`
	Added        int `json:"added"`
	Removed      int `json:"removed"`
	Modified     int `json:"modified"`
	LinesAdded   int `json:"linesAdded"`
	LinesRemoved int `json:"linesRemoved"`
}

func (s Summary) String() string {
	if s.Entries == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d changes: %d added, %d removed, %d modified (+%d -%d lines)",
		s.Entries, s.Added, s.Removed, s.Modified, s.LinesAdded, s.LinesRemoved)
}

// Summary tallies entries by type and counts the lines they touch.
func (m Model) Summary() Summary {
	s := Summary{Entries: len(m.Entries)}
	for _, e := range m.Entries {
		switch e.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		}
		s.LinesAdded += len(e.ModifiedLines())
		s.LinesRemoved += len(e.OriginalLines())
	}
	return s
}

// Lines renders a detailed listing: a header per entry followed by the removed
// lines prefixed with "-" and the added lines prefixed with "+".
func (m Model) Lines() []string {
	var out []string
	for i, e := range m.Entries {
		out = append(out, fmt.Sprintf("[%d] %s", i+1, e.Description))
		for _, l := range e.OriginalLines() {
			out = append(out, "-"+l)
		}
		for _, l := range e.ModifiedLines() {
			out = append(out, "+"+l)
		}
	}
	return out
}

// String joins Lines.
func (m Model) String() string {
	return strings.Join(m.Lines(), "\n")
}
