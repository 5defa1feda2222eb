package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/integration/provider"
	"github.com/colonyops/phyline/internal/tui/viewer"
	"github.com/colonyops/phyline/pkg/executil"
	"github.com/colonyops/phyline/pkg/utils"
)

type ViewCmd struct {
	flags *Flags

	// flags
	doc      string
	source   string
	lineInfo bool
}

// NewViewCmd creates a new view command
func NewViewCmd(flags *Flags) *ViewCmd {
	return &ViewCmd{flags: flags}
}

// Register adds the view command to the application
func (cmd *ViewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "view",
		Usage:     "Open the side-by-side viewer",
		UsageText: "phyline view --source <file> [--doc <document>]",
		Description: `Shows the rendered human text next to the source. Hovering or moving the
cursor over a line highlights the lines it maps to on the other side.

Press e to edit the human text in $EDITOR, a to apply the edits through the
rewriter and r to regenerate the tree from the updated source. Without --doc
the tree is generated by the configured provider command.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "doc",
				Aliases:     []string{"d"},
				Usage:       "path to the PHY document",
				Destination: &cmd.doc,
			},
			&cli.StringFlag{
				Name:        "source",
				Aliases:     []string{"s"},
				Usage:       "path to the source file the document describes",
				Required:    true,
				Destination: &cmd.source,
			},
			&cli.BoolFlag{
				Name:        "line-info",
				Usage:       "append the source line range to each node's first line",
				Destination: &cmd.lineInfo,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ViewCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	if cmd.doc == "" && cfg.Provider.Command == "" {
		return errors.New("--doc is required when no provider command is configured")
	}

	// The alternate screen owns the terminal; hold stderr logs until it exits.
	if cmd.flags.LogFile == "" {
		deferred := &utils.DeferredWriter{}
		prev := log.Logger
		log.Logger = log.Logger.Output(deferred)
		defer func() {
			log.Logger = prev
			_ = deferred.Flush(os.Stderr)
		}()
	}

	prov := provider.FromConfig(cfg.Provider, executil.ShellExecutor{}, cmd.doc)
	ctx = logging.WithDocument(ctx, cmd.doc)

	doc, err := cmd.load(ctx, prov)
	if err != nil {
		return err
	}
	source, err := readText(cmd.source)
	if err != nil {
		return err
	}

	sess := newSession(cfg, doc, sessionOptions{
		sourcePath: cmd.source,
		source:     source,
		lineInfo:   cmd.lineInfo,
		apply:      true,
	})
	if err := sess.LastError(); err != nil {
		log.Warn().Err(err).Msg("tree could not be indexed, hover is disabled")
	}

	model := viewer.New(viewer.Deps{
		Session:      sess,
		Provider:     prov,
		Save:         func(s string) error { return writeFileAtomic(cmd.source, s) },
		SourcePath:   cmd.source,
		DocumentPath: cmd.doc,
		Editor:       cfg.Editor,
		TempDir:      os.TempDir(),
	})

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}
	return nil
}

func (cmd *ViewCmd) load(ctx context.Context, prov provider.Provider) (*phy.Document, error) {
	if cmd.doc != "" {
		return phy.Load(cmd.doc)
	}
	return prov.Tree(ctx, cmd.source)
}
