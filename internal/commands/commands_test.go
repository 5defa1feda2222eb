package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/phyline/internal/core/config"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/internal/printer"
)

const (
	testSource = "def f(n):\n    return n * n\n\ndef g():\n    pass\n"
	testDoc    = `{
  "phy_chunks": {
    "main": {
      "id": "root",
      "children": [
        {"id": "f", "type": "function", "signature": "def f(n):", "description": "Returns n squared", "line_range": [1, 2]},
        {"id": "g", "type": "function", "signature": "def g():", "line_range": [4, 5]}
      ]
    }
  },
  "metadata": {"source_file": "mod.py"}
}`
	testRendered = "    def f(n):\n        Returns n squared\n    def g():\n"
)

type registrar interface {
	Register(app *cli.Command) *cli.Command
}

func testFlags(t *testing.T) *Flags {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &Flags{Config: &cfg}
}

// run executes args against an app with only cmd registered and returns
// everything written to stdout.
func run(t *testing.T, cmd registrar, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := &cli.Command{
		Name:      "phyline",
		Writer:    &out,
		ErrWriter: io.Discard,
	}
	app = cmd.Register(app)

	ctx := printer.NewContext(context.Background(), printer.New(&out))
	err := app.Run(ctx, append([]string{"phyline"}, args...))
	return ansi.Strip(out.String()), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRenderCmd(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "mod.phy.json", testDoc)

	t.Run("text", func(t *testing.T) {
		out, err := run(t, NewRenderCmd(testFlags(t)), "render", doc)
		require.NoError(t, err)
		assert.Equal(t, testRendered, out)
	})

	t.Run("line info", func(t *testing.T) {
		out, err := run(t, NewRenderCmd(testFlags(t)), "render", "--line-info", doc)
		require.NoError(t, err)
		assert.Contains(t, out, "    def f(n):  (lines 1–2)\n")
		assert.Contains(t, out, "    def g():  (lines 4–5)\n")
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, NewRenderCmd(testFlags(t)), "render", "--json", doc)
		require.NoError(t, err)

		var got renderedDocument
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, doc, got.Path)
		assert.Len(t, got.Lines, 3)
		require.Len(t, got.Mappings, 3)
		assert.Equal(t, "f", got.Mappings[1].NodeID)
		assert.Equal(t, 4, got.Mappings[2].SourceRange.Start)
		assert.Empty(t, got.Overlaps)
	})

	t.Run("glob renders every match with headers", func(t *testing.T) {
		sub := filepath.Join(dir, "nested")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		writeFile(t, sub, "other.phy.json", testDoc)

		out, err := run(t, NewRenderCmd(testFlags(t)), "render", filepath.Join(dir, "**", "*.phy.json"))
		require.NoError(t, err)
		assert.Contains(t, out, "==> "+doc+" <==")
		assert.Contains(t, out, "==> "+filepath.Join(sub, "other.phy.json")+" <==")
	})

	t.Run("glob without matches", func(t *testing.T) {
		_, err := run(t, NewRenderCmd(testFlags(t)), "render", filepath.Join(dir, "*.missing"))
		require.ErrorContains(t, err, "no documents match")
	})

	t.Run("output file", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.txt")
		out, err := run(t, NewRenderCmd(testFlags(t)), "render", "-o", target, doc)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, testRendered, string(data))
	})

	t.Run("file flag", func(t *testing.T) {
		out, err := run(t, NewRenderCmd(testFlags(t)), "render", "--file", doc)
		require.NoError(t, err)
		assert.Equal(t, testRendered, out)
	})
}

func TestMapCmd(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "mod.phy.json", testDoc)

	tests := []struct {
		name    string
		args    []string
		want    []int
		node    string
		wantErr string
	}{
		{name: "human to source", args: []string{"--human", "2"}, want: []int{1, 2}, node: "f"},
		{name: "source to human", args: []string{"--source", "5"}, want: []int{3}, node: "g"},
		{name: "unmapped source line", args: []string{"--source", "3"}, want: []int{}},
		{name: "both sides", args: []string{"--human", "1", "--source", "1"}, wantErr: "mutually exclusive"},
		{name: "no side", args: nil, wantErr: "one of --human or --source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"map", "--json", "--doc", doc}, tt.args...)
			out, err := run(t, NewMapCmd(testFlags(t)), args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			var got mapResult
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got.Highlight)
			if tt.node == "" {
				assert.Nil(t, got.Node)
			} else {
				require.NotNil(t, got.Node)
				assert.Equal(t, tt.node, got.Node.ID)
			}
		})
	}

	t.Run("text", func(t *testing.T) {
		out, err := run(t, NewMapCmd(testFlags(t)), "map", "--doc", doc, "--human", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "human line 3 -> source lines 4, 5")
		assert.Contains(t, out, "node g function")
	})
}

func TestNodesCmd(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "mod.phy.json", testDoc)

	t.Run("lists in tree order", func(t *testing.T) {
		out, err := run(t, NewNodesCmd(testFlags(t)), "nodes", "--json", "--doc", doc)
		require.NoError(t, err)

		var rows []nodeRow
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "root", rows[0].ID)
		assert.Nil(t, rows[0].LineRange)
		assert.Equal(t, 1, rows[1].Depth)
		assert.Equal(t, 1, rows[1].HumanLine)
		assert.Equal(t, 3, rows[2].HumanLine)
		assert.Zero(t, rows[0].HumanLine)
	})

	t.Run("fuzzy match", func(t *testing.T) {
		out, err := run(t, NewNodesCmd(testFlags(t)), "nodes", "--json", "--doc", doc, "--match", "squared")
		require.NoError(t, err)

		var rows []nodeRow
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "f", rows[0].ID)
	})

	t.Run("table", func(t *testing.T) {
		out, err := run(t, NewNodesCmd(testFlags(t)), "nodes", "--doc", doc)
		require.NoError(t, err)
		assert.Contains(t, out, "ID")
		assert.Contains(t, out, "  g")
		assert.Contains(t, out, "1-2")
	})
}

func TestDiffCmd(t *testing.T) {
	dir := t.TempDir()
	orig := writeFile(t, dir, "orig.txt", testRendered)
	edited := writeFile(t, dir, "edited.txt", "    def f(n):\n        Returns n cubed\n    def g():\n")

	tests := []struct {
		name   string
		args   []string
		expect []string
	}{
		{name: "text", args: nil, expect: []string{"[1]", "-        Returns n squared", "+        Returns n cubed"}},
		{name: "summary", args: []string{"--format", "summary"}, expect: []string{"1 changes: 0 added, 0 removed, 1 modified"}},
		{name: "unified", args: []string{"--format", "unified"}, expect: []string{"--- " + orig, "+++ " + edited, "@@", "+        Returns n cubed"}},
		{name: "json", args: []string{"--format", "json"}, expect: []string{`"type": "modified"`, `"summary"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{"diff"}, tt.args...), orig, edited)
			out, err := run(t, NewDiffCmd(testFlags(t)), args...)
			require.NoError(t, err)
			for _, e := range tt.expect {
				assert.Contains(t, out, e)
			}
		})
	}

	t.Run("strip line info", func(t *testing.T) {
		annotated := writeFile(t, dir, "annotated.txt", "    def f(n):  (lines 1–2)\n        Returns n squared\n    def g():  (lines 4–5)\n")
		out, err := run(t, NewDiffCmd(testFlags(t)), "diff", "--strip-line-info", orig, annotated)
		require.NoError(t, err)
		assert.Equal(t, "no changes\n", out)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, NewDiffCmd(testFlags(t)), "diff", "--format", "xml", orig, edited)
		require.ErrorContains(t, err, "unknown format")
	})

	t.Run("wrong argument count", func(t *testing.T) {
		_, err := run(t, NewDiffCmd(testFlags(t)), "diff", orig)
		require.ErrorContains(t, err, "expected ORIGINAL and EDITED")
	})
}

func TestApplyCmd(t *testing.T) {
	setup := func(t *testing.T, edited string) (dir, doc, source, editedPath string) {
		dir = t.TempDir()
		doc = writeFile(t, dir, "mod.phy.json", testDoc)
		source = writeFile(t, dir, "mod.py", testSource)
		editedPath = writeFile(t, dir, "edited.txt", edited)
		return dir, doc, source, editedPath
	}
	rewriterFlags := func(t *testing.T) *Flags {
		flags := testFlags(t)
		flags.Config.Rewriter.Command = "cat"
		flags.Config.Rewriter.Prompt = "# {{ .Edits }} edit(s)\n{{ .Source }}"
		return flags
	}

	t.Run("rewrites source", func(t *testing.T) {
		_, doc, source, edited := setup(t, "    def f(n):\n        Returns n cubed\n    def g():\n")

		out, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited)
		require.NoError(t, err)
		assert.Contains(t, out, "applied 1 edit(s)")

		data, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, "# 1 edit(s)\n"+testSource, string(data))
	})

	t.Run("output path leaves source untouched", func(t *testing.T) {
		dir, doc, source, edited := setup(t, "    def f(n):\n        Returns n cubed\n    def g():\n")
		target := filepath.Join(dir, "out.py")

		_, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "-y", "--doc", doc, "--source", source, "--edited", edited, "-o", target)
		require.NoError(t, err)

		data, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, testSource, string(data))

		data, err = os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# 1 edit(s)")
	})

	t.Run("no changes", func(t *testing.T) {
		_, doc, source, edited := setup(t, testRendered)

		out, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited)
		require.NoError(t, err)
		assert.Contains(t, out, "no changes")
	})

	t.Run("declined confirmation", func(t *testing.T) {
		_, doc, source, edited := setup(t, "    def f(n):\n        Returns n cubed\n    def g():\n")

		cmd := NewApplyCmd(rewriterFlags(t))
		cmd.confirm = func(string) (bool, error) { return false, nil }

		out, err := run(t, cmd, "apply", "--doc", doc, "--source", source, "--edited", edited)
		require.NoError(t, err)
		assert.Contains(t, out, "aborted")

		data, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, testSource, string(data))
	})

	t.Run("stale baseline", func(t *testing.T) {
		dir, doc, source, edited := setup(t, "    def f(n):\n        Returns n cubed\n    def g():\n")
		saved := writeFile(t, dir, "saved.txt", "    def f(n):\n        Returns n\n    def g():\n")

		_, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited, "--saved", saved)
		require.ErrorIs(t, err, reconcile.ErrUnresolvedMapping)

		data, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, testSource, string(data))
	})

	t.Run("matching baseline", func(t *testing.T) {
		dir, doc, source, edited := setup(t, "    def f(n):\n        Returns n cubed\n    def g():\n")
		saved := writeFile(t, dir, "saved.txt", testRendered)

		out, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited, "--saved", saved)
		require.NoError(t, err)
		assert.Contains(t, out, "applied 1 edit(s)")
	})

	t.Run("added line anchored to a mapped node", func(t *testing.T) {
		_, doc, source, edited := setup(t, testRendered+"    def h():\n")

		out, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited)
		require.NoError(t, err)
		assert.Contains(t, out, "applied 1 edit(s)")
	})

	t.Run("unmappable change is refused", func(t *testing.T) {
		dir := t.TempDir()
		doc := writeFile(t, dir, "mod.phy.json", `{"phy_chunks": {"main": {"id": "root", "children": [
			{"id": "f", "signature": "def f(n):", "line_range": [1, 2]},
			{"id": "note", "description": "module notes"}
		]}}}`)
		source := writeFile(t, dir, "mod.py", testSource)
		edited := writeFile(t, dir, "edited.txt", "    def f(n):\n    module notes, revised\n")

		out, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited)
		require.ErrorIs(t, err, reconcile.ErrUnresolvedMapping)
		assert.Contains(t, out, "unmapped:")

		data, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, testSource, string(data))
	})

	t.Run("malformed tree is refused", func(t *testing.T) {
		dir := t.TempDir()
		doc := writeFile(t, dir, "mod.phy.json", `{"phy_chunks": {"main": {"id": "root", "children": [
			{"id": "x", "signature": "def f(n):", "line_range": [1, 2]},
			{"id": "x", "signature": "def g():", "line_range": [4, 5]}
		]}}}`)
		source := writeFile(t, dir, "mod.py", testSource)
		edited := writeFile(t, dir, "edited.txt", "    def f(n):\n    def g2():\n")

		_, err := run(t, NewApplyCmd(rewriterFlags(t)), "apply", "--yes", "--doc", doc, "--source", source, "--edited", edited)
		require.ErrorIs(t, err, phy.ErrMalformedTree)
		assert.Contains(t, err.Error(), `duplicate id "x"`)

		data, err := os.ReadFile(source)
		require.NoError(t, err)
		assert.Equal(t, testSource, string(data))
	})

	t.Run("report is a dry run", func(t *testing.T) {
		_, doc, source, edited := setup(t, "    def f(n):\n        Returns n cubed\n    def g():\n")

		out, err := run(t, NewApplyCmd(testFlags(t)), "apply", "--report", "--doc", doc, "--source", source, "--edited", edited)
		require.NoError(t, err)

		var plan applyPlan
		require.NoError(t, json.Unmarshal([]byte(out), &plan))
		assert.Equal(t, 1, plan.Summary.Modified)
		require.Len(t, plan.Report.Changes, 1)
		assert.Equal(t, "f", plan.Report.Changes[0].NodeID)
		assert.Empty(t, plan.Unmappable)
	})
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	require.NoError(t, writeFileAtomic(path, "new\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".phyline.tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
