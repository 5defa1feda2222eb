package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/render"
)

const testSource = "def f(n):\n    \"\"\"doc\"\"\"\n    return n\n\ndef g():\n    pass\n"

func rng(start, end int) *phy.LineRange {
	return &phy.LineRange{Start: start, End: end}
}

// testTree renders as:
//
//	1 "    def f(n):"     -> [1,3]
//	2 "        doc"       -> [1,3]
//	3 "    def g():"      -> [5,6]
//	4 "    Generated note." (unmapped)
func testTree() *phy.Node {
	return &phy.Node{
		ID: "main",
		Children: []*phy.Node{
			{ID: "f", Type: "function_definition", Signature: "def f(n):", Description: "doc", SourceRange: rng(1, 3)},
			{ID: "g", Type: "function_definition", Signature: "def g():", SourceRange: rng(5, 6)},
			{ID: "note", Description: "Generated note."},
		},
	}
}

func testInput(t *testing.T, edited string) ApplyInput {
	t.Helper()
	root := testTree()
	res := render.New().Render(root)
	arena := phy.NewArena(root)
	idx, err := linemap.Build(res.Mappings, linemap.WithAncestry(arena.IsAncestor))
	require.NoError(t, err)

	return ApplyInput{
		Source:     testSource,
		SourcePath: "f.py",
		Saved:      res.Text(),
		Edited:     edited,
		Index:      idx,
		Arena:      arena,
	}
}

func replaceLine(text string, line int, with string) string {
	lines := strings.Split(text, "\n")
	lines[line-1] = with
	return strings.Join(lines, "\n")
}

func TestResolve(t *testing.T) {
	in := testInput(t, "")

	tests := []struct {
		name       string
		edited     string
		wantEdits  int
		wantRange  phy.LineRange
		wantNodes  []string
		unmappable int
	}{
		{
			name:      "modified description",
			edited:    replaceLine(in.Saved, 2, "        documented"),
			wantEdits: 1, wantRange: phy.LineRange{Start: 1, End: 3}, wantNodes: []string{"f"},
		},
		{
			name:      "change spanning two nodes",
			edited:    replaceLine(replaceLine(in.Saved, 2, "        x"), 3, "    def h():"),
			wantEdits: 1, wantRange: phy.LineRange{Start: 1, End: 6}, wantNodes: []string{"f", "g"},
		},
		{
			name:      "insertion at the top uses the first line",
			edited:    "# header\n" + in.Saved,
			wantEdits: 1, wantRange: phy.LineRange{Start: 1, End: 3}, wantNodes: []string{"f"},
		},
		{
			name:      "insertion after a mapped line",
			edited:    strings.Replace(in.Saved, "    def g():\n", "    def g():\n        new detail\n", 1),
			wantEdits: 1, wantRange: phy.LineRange{Start: 5, End: 6}, wantNodes: []string{"g"},
		},
		{
			name:       "unmapped line",
			edited:     replaceLine(in.Saved, 4, "    Another note."),
			unmappable: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(diff.Compute(in.Saved, tt.edited), in.Index)

			require.Len(t, res.Edits, tt.wantEdits)
			assert.Len(t, res.Unmappable, tt.unmappable)
			assert.Equal(t, tt.unmappable == 0, res.Resolved())

			if tt.wantEdits > 0 {
				assert.Equal(t, tt.wantRange, res.Edits[0].SourceRange)
				assert.Equal(t, tt.wantNodes, res.Edits[0].NodeIDs)
				assert.Equal(t, res.Edits[0].Entry.ModifiedContent, res.Edits[0].Replacement)
			}
		})
	}
}

func TestResolve_EmptyIndex(t *testing.T) {
	model := diff.Compute("a\n", "b\n")
	res := Resolve(model, linemap.Empty())
	assert.Empty(t, res.Edits)
	assert.Len(t, res.Unmappable, 1)
}

func TestPipelineApply(t *testing.T) {
	in := testInput(t, "")
	in.Edited = replaceLine(in.Saved, 2, "        Returns n unchanged.")

	var got RewriteRequest
	p := NewPipeline(RewriterFunc(func(ctx context.Context, req RewriteRequest) (string, error) {
		got = req
		return strings.Replace(req.Source, `"""doc"""`, `"""Returns n unchanged."""`, 1), nil
	}))

	res, err := p.Apply(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Contains(t, res.Source, "Returns n unchanged.")
	assert.Equal(t, 1, res.Diff.Len())

	assert.Equal(t, testSource, got.Source)
	assert.Equal(t, "f.py", got.SourcePath)
	require.Len(t, got.Edits, 1)
	assert.Equal(t, phy.LineRange{Start: 1, End: 3}, got.Edits[0].SourceRange)

	assert.Equal(t, 1, got.Report.TotalChanges)
	assert.Equal(t, "f.py", got.Report.Metadata.SourceFile)
	require.Len(t, got.Report.Changes, 1)
	change := got.Report.Changes[0]
	assert.Equal(t, "f", change.NodeID)
	assert.Equal(t, "function_definition", change.NodeType)
	assert.Equal(t, "def f(n):", change.Signature)
	assert.Equal(t, diff.Modified, change.ChangeType)
	assert.Equal(t, []int{2}, change.HumanLines)
	assert.Equal(t, "        doc", change.OriginalContent)
}

func TestPipelineApply_NoChanges(t *testing.T) {
	in := testInput(t, "")
	in.Edited = in.Saved

	called := false
	p := NewPipeline(RewriterFunc(func(ctx context.Context, req RewriteRequest) (string, error) {
		called = true
		return "", nil
	}))

	res, err := p.Apply(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, called)
	assert.False(t, res.Changed)
	assert.Equal(t, testSource, res.Source)
}

func TestPipelineApply_Unresolved(t *testing.T) {
	in := testInput(t, "")
	in.Edited = replaceLine(in.Saved, 4, "    Changed note.")

	p := NewPipeline(RewriterFunc(func(ctx context.Context, req RewriteRequest) (string, error) {
		t.Fatal("rewriter must not be called with unresolved changes")
		return "", nil
	}))

	res, err := p.Apply(context.Background(), in)
	require.ErrorIs(t, err, ErrUnresolvedMapping)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	require.Len(t, unresolved.Entries, 1)
	assert.Equal(t, diff.Modified, unresolved.Entries[0].Type)

	assert.Equal(t, 1, res.Diff.Len(), "diff is kept for review")
	assert.Equal(t, testSource, res.Source)
}

func TestPipelineApply_Rejected(t *testing.T) {
	in := testInput(t, "")
	in.Edited = replaceLine(in.Saved, 2, "        x")

	boom := errors.New("validation failed: SyntaxError")
	p := NewPipeline(RewriterFunc(func(ctx context.Context, req RewriteRequest) (string, error) {
		return "", boom
	}))

	res, err := p.Apply(context.Background(), in)
	require.ErrorIs(t, err, ErrApplyRejected)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "SyntaxError")
	assert.Equal(t, 1, res.Diff.Len())

	_, err = NewPipeline(nil).Apply(context.Background(), in)
	require.ErrorIs(t, err, ErrApplyRejected)
}
