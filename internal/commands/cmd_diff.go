package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/render"
	"github.com/colonyops/phyline/internal/core/styles"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatUnified  = "unified"
	formatSummary  = "summary"
	formatMarkdown = "markdown"
)

type DiffCmd struct {
	flags *Flags

	// flags
	format        string
	stripLineInfo bool
	context       int
}

// NewDiffCmd creates a new diff command
func NewDiffCmd(flags *Flags) *DiffCmd {
	return &DiffCmd{flags: flags}
}

// Register adds the diff command to the application
func (cmd *DiffCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "diff",
		Usage:     "Show the changes between two versions of the human text",
		UsageText: "phyline diff [options] ORIGINAL EDITED",
		Description: `Compares two versions of rendered human text line by line and lists the
added, removed and modified runs. This is the change set apply resolves back
onto the source.

Formats:
  text      numbered entries with -/+ lines (default)
  json      the full change model
  unified   a unified diff
  summary   counts only
  markdown  a styled report for the terminal`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format: text, json, unified, summary or markdown",
				Value:       formatText,
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "strip-line-info",
				Usage:       "ignore \"(lines a-b)\" suffixes when comparing",
				Destination: &cmd.stripLineInfo,
			},
			&cli.IntFlag{
				Name:        "context",
				Usage:       "context lines for the unified format",
				Value:       diff.DefaultContext,
				Destination: &cmd.context,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *DiffCmd) run(_ context.Context, c *cli.Command) error {
	switch cmd.format {
	case formatText, formatJSON, formatUnified, formatSummary, formatMarkdown:
	default:
		return fmt.Errorf("unknown format %q", cmd.format)
	}
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected ORIGINAL and EDITED, got %d argument(s)", c.Args().Len())
	}
	origPath, editPath := c.Args().Get(0), c.Args().Get(1)

	original, err := readText(origPath)
	if err != nil {
		return err
	}
	edited, err := readText(editPath)
	if err != nil {
		return err
	}
	if cmd.stripLineInfo {
		original = render.StripLineInfoText(original)
		edited = render.StripLineInfoText(edited)
	}

	model := diff.Compute(original, edited)
	w := c.Root().Writer

	switch cmd.format {
	case formatJSON:
		return writeJSON(c, w, struct {
			diff.Model
			Summary diff.Summary `json:"summary"`
		}{model, model.Summary()})
	case formatSummary:
		_, err := fmt.Fprintln(w, model.Summary())
		return err
	case formatUnified:
		out, err := diff.Unified(original, edited, origPath, editPath, cmd.context)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case formatMarkdown:
		out, err := renderMarkdown(diffMarkdown(model, origPath, editPath))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		if model.Empty() {
			_, err := fmt.Fprintln(w, "no changes")
			return err
		}
		_, err := fmt.Fprintln(w, model.String())
		return err
	}
}

// diffMarkdown formats the change model as a markdown report.
func diffMarkdown(model diff.Model, from, to string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Changes: `%s` → `%s`\n\n", from, to)
	fmt.Fprintf(&b, "%s\n", model.Summary())

	for i, e := range model.Entries {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, e.Description)
		b.WriteString("```diff\n")
		for _, l := range e.OriginalLines() {
			b.WriteString("-" + l + "\n")
		}
		for _, l := range e.ModifiedLines() {
			b.WriteString("+" + l + "\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}

func renderMarkdown(md string) (string, error) {
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
