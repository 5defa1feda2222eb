package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/internal/printer"
)

type ApplyCmd struct {
	flags *Flags

	// confirm asks before the rewriter runs; replaced in tests.
	confirm func(title string) (bool, error)

	// flags
	doc      string
	source   string
	edited   string
	saved    string
	lineInfo bool
	output   string
	yes      bool
	report   bool
}

// NewApplyCmd creates a new apply command
func NewApplyCmd(flags *Flags) *ApplyCmd {
	return &ApplyCmd{flags: flags, confirm: confirmPrompt}
}

// applyPlan is the dry-run output of --report.
type applyPlan struct {
	Summary    diff.Summary     `json:"summary"`
	Edits      []reconcile.Edit `json:"edits"`
	Unmappable []diff.Entry     `json:"unmappable,omitempty"`
	Report     reconcile.Report `json:"report"`
}

// Register adds the apply command to the application
func (cmd *ApplyCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "apply",
		Usage:     "Apply edits of the human text to the source",
		UsageText: "phyline apply --doc <document> --source <file> --edited <file> [options]",
		Description: `Renders the document, diffs the rendering against the edited text, resolves
every change to the source lines it came from and hands the changes to the
configured rewriter. The rewritten source replaces --source unless --output
is given.

Changes to lines without a source range are refused before the rewriter runs.
Use --report to print the resolved changes as JSON without rewriting.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "doc",
				Aliases:     []string{"d"},
				Usage:       "path to the PHY document",
				Required:    true,
				Destination: &cmd.doc,
			},
			&cli.StringFlag{
				Name:        "source",
				Aliases:     []string{"s"},
				Usage:       "path to the source file the document describes",
				Required:    true,
				Destination: &cmd.source,
			},
			&cli.StringFlag{
				Name:        "edited",
				Aliases:     []string{"e"},
				Usage:       "path to the edited human text",
				Required:    true,
				Destination: &cmd.edited,
			},
			&cli.StringFlag{
				Name:        "saved",
				Usage:       "the text the edits started from; refused if it no longer matches the rendering",
				Destination: &cmd.saved,
			},
			&cli.BoolFlag{
				Name:        "line-info",
				Usage:       "the edited text was rendered with line info",
				Destination: &cmd.lineInfo,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write the rewritten source here instead of over --source",
				Destination: &cmd.output,
			},
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "apply without confirmation",
				Destination: &cmd.yes,
			},
			&cli.BoolFlag{
				Name:        "report",
				Usage:       "print the resolved changes as JSON and exit",
				Destination: &cmd.report,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ApplyCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	ctx = logging.WithDocument(ctx, cmd.doc)

	doc, err := phy.Load(cmd.doc)
	if err != nil {
		return err
	}
	source, err := readText(cmd.source)
	if err != nil {
		return err
	}
	edited, err := readText(cmd.edited)
	if err != nil {
		return err
	}

	sess := newSession(cmd.flags.Config, doc, sessionOptions{
		sourcePath: cmd.source,
		source:     source,
		lineInfo:   cmd.lineInfo,
		apply:      !cmd.report,
	})
	if err := sess.LastError(); err != nil {
		return fmt.Errorf("index %s: %w", cmd.doc, err)
	}
	if cmd.saved != "" {
		if err := checkBaseline(cmd.saved, sess.Saved()); err != nil {
			return err
		}
	}
	sess.Edit(edited)

	if cmd.report {
		return cmd.writePlan(c, sess)
	}

	model := sess.Diff()
	if model.Empty() {
		p.Infof("no changes")
		return nil
	}

	p.Infof("%s", model.Summary())
	for _, l := range model.Lines() {
		p.Printf("  %s", l)
	}

	if !cmd.yes {
		ok, err := cmd.confirm(fmt.Sprintf("Apply %d change(s) to %s?", model.Len(), cmd.source))
		if err != nil {
			return err
		}
		if !ok {
			p.Warnf("aborted")
			return nil
		}
	}

	res, err := sess.Apply(ctx)
	if err != nil {
		var unresolved *reconcile.UnresolvedError
		if errors.As(err, &unresolved) {
			for _, e := range unresolved.Entries {
				p.Errorf("unmapped: %s", e.Description)
			}
		}
		return err
	}

	if !res.Changed {
		p.Warnf("rewriter left the source unchanged")
		return nil
	}

	out := cmd.output
	if out == "" {
		out = cmd.source
	}
	if err := writeFileAtomic(out, res.Source); err != nil {
		return err
	}

	p.Successf("applied %d edit(s) to %s", len(res.Edits), out)
	return nil
}

// checkBaseline refuses edits made against a rendering of an older tree: their
// line numbers would resolve through the wrong mappings.
func checkBaseline(path, rendered string) error {
	saved, err := readText(path)
	if err != nil {
		return err
	}
	if model := diff.Compute(rendered, saved); !model.Empty() {
		return fmt.Errorf("%w: %s differs from the current rendering (%s), re-render before editing",
			reconcile.ErrUnresolvedMapping, path, model.Summary())
	}
	return nil
}

func (cmd *ApplyCmd) writePlan(c *cli.Command, sess *reconcile.Session) error {
	res, resolution := reconcile.NewPipeline(nil).Plan(reconcile.ApplyInput{
		Source:     sess.Source(),
		SourcePath: cmd.source,
		Saved:      sess.Saved(),
		Edited:     sess.Text(),
		Index:      sess.Index(),
		Arena:      sess.Arena(),
	})

	plan := applyPlan{
		Summary:    res.Diff.Summary(),
		Edits:      res.Edits,
		Unmappable: resolution.Unmappable,
		Report:     res.Report,
	}
	if plan.Edits == nil {
		plan.Edits = []reconcile.Edit{}
	}
	return writeJSON(c, c.Root().Writer, plan)
}

// confirmPrompt asks on the terminal. Without a terminal there is nobody to
// answer, so --yes is required.
func confirmPrompt(title string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("stdin is not a terminal, pass --yes to apply")
	}

	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Apply").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}
