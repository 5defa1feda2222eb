package reconcile

import (
	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/phy"
)

// Report describes the resolved changes node by node. It is handed to the
// rewriting collaborator alongside the edits.
type Report struct {
	TotalChanges int              `json:"total_changes"`
	Changes      []ChangeAnalysis `json:"changes"`
	Metadata     ReportMetadata   `json:"metadata"`
}

// ReportMetadata identifies the source the report applies to.
type ReportMetadata struct {
	SourceFile string `json:"source_file,omitempty"`
}

// ChangeAnalysis is the report entry for one edit.
type ChangeAnalysis struct {
	NodeID          string          `json:"node_id"`
	NodeType        string          `json:"node_type,omitempty"`
	Signature       string          `json:"signature,omitempty"`
	Description     string          `json:"description,omitempty"`
	SourceRange     phy.LineRange   `json:"line_range"`
	ChangeType      diff.ChangeType `json:"change_type"`
	HumanLines      []int           `json:"human_lines"`
	OriginalContent string          `json:"original_content,omitempty"`
	ModifiedContent string          `json:"modified_content,omitempty"`
	Summary         string          `json:"summary"`
}

// NewReport builds a report for edits. The arena supplies node details; the
// innermost node touched by an edit is the one reported.
func NewReport(edits []Edit, arena *phy.Arena, sourceFile string) Report {
	r := Report{
		TotalChanges: len(edits),
		Changes:      make([]ChangeAnalysis, 0, len(edits)),
		Metadata:     ReportMetadata{SourceFile: sourceFile},
	}

	for _, e := range edits {
		ca := ChangeAnalysis{
			NodeID:          innermost(e.NodeIDs, arena),
			SourceRange:     e.SourceRange,
			ChangeType:      e.Entry.Type,
			HumanLines:      e.HumanLines,
			OriginalContent: e.Entry.OriginalContent,
			ModifiedContent: e.Entry.ModifiedContent,
			Summary:         e.Entry.Description,
		}
		if n, ok := arena.Get(ca.NodeID); ok {
			ca.NodeType = n.Type
			ca.Signature = n.Signature
			ca.Description = n.Description
		}
		r.Changes = append(r.Changes, ca)
	}

	return r
}

func innermost(ids []string, arena *phy.Arena) string {
	best, bestDepth := "", -1
	for _, id := range ids {
		depth, ok := arena.Depth(id)
		if !ok {
			depth = 0
		}
		if depth > bestDepth {
			best, bestDepth = id, depth
		}
	}
	return best
}
