package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/render"
	"github.com/colonyops/phyline/pkg/iojson"
)

type RenderCmd struct {
	flags  *Flags
	reader iojson.FileReader[*phy.Document]

	// flags
	lineInfo   bool
	jsonOutput bool
	output     string
	strict     bool
}

// NewRenderCmd creates a new render command
func NewRenderCmd(flags *Flags) *RenderCmd {
	return &RenderCmd{
		flags:  flags,
		reader: iojson.FileReader[*phy.Document]{Decode: phy.Read},
	}
}

// renderedDocument is the JSON form of one rendered document.
type renderedDocument struct {
	Path     string            `json:"path,omitempty"`
	Lines    []string          `json:"lines"`
	Mappings []linemap.Mapping `json:"mappings"`
	Overlaps []linemap.Overlap `json:"overlaps,omitempty"`
}

// Register adds the render command to the application
func (cmd *RenderCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "render",
		Usage:     "Render PHY documents as indented human text",
		UsageText: "phyline render [options] [document or glob...]",
		Description: `Renders each document's main tree into the indented text that is edited
in place of the source. Arguments may be glob patterns such as "docs/**/*.phy.json".

With no arguments the document is read from --file or stdin.
Use --json to include the line mappings for every rendered line.`,
		Flags: []cli.Flag{
			cmd.reader.Flag(),
			&cli.BoolFlag{
				Name:        "line-info",
				Usage:       "append the source line range to each node's first line",
				Destination: &cmd.lineInfo,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output lines and mappings as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write output to a file instead of stdout",
				Destination: &cmd.output,
			},
			&cli.BoolFlag{
				Name:        "strict",
				Usage:       "reject malformed trees instead of rendering them unmapped",
				Destination: &cmd.strict,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RenderCmd) run(_ context.Context, c *cli.Command) error {
	docs, err := cmd.load(c.Args().Slice())
	if err != nil {
		return err
	}

	out := make([]renderedDocument, 0, len(docs))
	for _, d := range docs {
		rd, err := cmd.render(d.path, d.doc)
		if err != nil {
			return err
		}
		out = append(out, rd)
	}

	w, closeOut, err := openOutput(cmd.output, c.Root().Writer)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	if cmd.jsonOutput {
		if len(out) == 1 {
			return writeJSON(c, w, out[0])
		}
		return writeJSON(c, w, out)
	}

	return writeRendered(w, out)
}

type loadedDocument struct {
	path string
	doc  *phy.Document
}

func (cmd *RenderCmd) load(args []string) ([]loadedDocument, error) {
	if len(args) == 0 {
		doc, err := cmd.reader.Read()
		if err != nil {
			return nil, err
		}
		return []loadedDocument{{path: cmd.reader.Path(), doc: doc}}, nil
	}

	paths, err := expandPaths(args)
	if err != nil {
		return nil, err
	}

	docs := make([]loadedDocument, 0, len(paths))
	for _, p := range paths {
		doc, err := phy.Load(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loadedDocument{path: p, doc: doc})
	}
	return docs, nil
}

func (cmd *RenderCmd) render(path string, doc *phy.Document) (renderedDocument, error) {
	renderer := newRenderer(cmd.flags.Config, cmd.lineInfo)

	var res render.Result
	if cmd.strict {
		var err error
		if res, err = renderer.RenderChecked(doc.Root()); err != nil {
			return renderedDocument{}, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		res = renderer.Render(doc.Root())
	}

	arena := phy.NewArena(doc.Root())
	idx, err := linemap.Build(res.Mappings,
		linemap.WithAncestry(arena.IsAncestor),
		linemap.WithStrictOverlaps(cmd.flags.Config.Mapping.StrictOverlaps || cmd.strict),
	)
	if err != nil {
		return renderedDocument{}, fmt.Errorf("%s: %w", path, err)
	}

	return renderedDocument{
		Path:     path,
		Lines:    res.Lines,
		Mappings: idx.Mappings(),
		Overlaps: idx.Overlaps(),
	}, nil
}

func writeRendered(w io.Writer, docs []renderedDocument) error {
	for i, d := range docs {
		if len(docs) > 1 {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "==> %s <==\n", d.Path); err != nil {
				return err
			}
		}
		if len(d.Lines) == 0 {
			continue
		}
		if _, err := fmt.Fprintln(w, strings.Join(d.Lines, "\n")); err != nil {
			return err
		}
	}
	return nil
}
