package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/phyline/internal/core/highlight"
	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/phy"
)

type MapCmd struct {
	flags *Flags

	// flags
	doc        string
	human      int
	source     int
	lineInfo   bool
	jsonOutput bool
}

// NewMapCmd creates a new map command
func NewMapCmd(flags *Flags) *MapCmd {
	return &MapCmd{flags: flags}
}

// mapResult is the JSON form of one projection.
type mapResult struct {
	Side      highlight.Side `json:"side"`
	Line      int            `json:"line"`
	Highlight []int          `json:"highlight"`
	Target    highlight.Side `json:"target"`
	Node      *mapNode       `json:"node,omitempty"`
}

type mapNode struct {
	ID        string        `json:"id"`
	Type      string        `json:"type,omitempty"`
	Signature string        `json:"signature,omitempty"`
	LineRange phy.LineRange `json:"line_range"`
}

// Register adds the map command to the application
func (cmd *MapCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "map",
		Usage:     "Project a line between the human text and the source",
		UsageText: "phyline map --doc <document> (--human <line> | --source <line>)",
		Description: `Resolves a 1-based line on one side to the lines it corresponds to on the
other side, exactly as hovering does in the viewer.

A human line maps to every line of its node's source range. A source line maps
to the human line of the innermost node that covers it.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "doc",
				Aliases:     []string{"d"},
				Usage:       "path to the PHY document",
				Required:    true,
				Destination: &cmd.doc,
			},
			&cli.IntFlag{
				Name:        "human",
				Usage:       "human line to project onto the source",
				Destination: &cmd.human,
			},
			&cli.IntFlag{
				Name:        "source",
				Usage:       "source line to project onto the human text",
				Destination: &cmd.source,
			},
			&cli.BoolFlag{
				Name:        "line-info",
				Usage:       "number human lines as rendered with line info",
				Destination: &cmd.lineInfo,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *MapCmd) run(_ context.Context, c *cli.Command) error {
	side, line, err := cmd.query()
	if err != nil {
		return err
	}

	doc, err := phy.Load(cmd.doc)
	if err != nil {
		return err
	}

	res := newRenderer(cmd.flags.Config, cmd.lineInfo).Render(doc.Root())
	arena := phy.NewArena(doc.Root())
	idx, err := linemap.Build(res.Mappings,
		linemap.WithAncestry(arena.IsAncestor),
		linemap.WithStrictOverlaps(cmd.flags.Config.Mapping.StrictOverlaps),
	)
	if err != nil {
		return err
	}

	hl := highlight.Project(idx, line, side)
	out := mapResult{
		Side:      side,
		Line:      line,
		Highlight: hl.Lines,
		Target:    hl.Side,
	}
	if out.Highlight == nil {
		out.Highlight = []int{}
	}
	if n := projectedNode(idx, arena, line, side, hl); n != nil {
		out.Node = &mapNode{ID: n.ID, Type: n.Type, Signature: n.Signature}
		if n.SourceRange != nil {
			out.Node.LineRange = *n.SourceRange
		}
	}

	if cmd.jsonOutput {
		return writeJSON(c, c.Root().Writer, out)
	}

	w := c.Root().Writer
	if hl.Empty() {
		_, err := fmt.Fprintf(w, "%s line %d is unmapped\n", side, line)
		return err
	}

	nums := make([]string, len(hl.Lines))
	for i, l := range hl.Lines {
		nums[i] = strconv.Itoa(l)
	}
	if _, err := fmt.Fprintf(w, "%s line %d -> %s lines %s\n", side, line, hl.Side, strings.Join(nums, ", ")); err != nil {
		return err
	}
	if out.Node != nil {
		_, err := fmt.Fprintf(w, "node %s %s %s\n", out.Node.ID, out.Node.Type, out.Node.LineRange)
		return err
	}
	return nil
}

func (cmd *MapCmd) query() (highlight.Side, int, error) {
	switch {
	case cmd.human != 0 && cmd.source != 0:
		return "", 0, fmt.Errorf("--human and --source are mutually exclusive")
	case cmd.human != 0:
		if cmd.human < 0 {
			return "", 0, fmt.Errorf("--human must be a positive line number")
		}
		return highlight.SideHuman, cmd.human, nil
	case cmd.source != 0:
		if cmd.source < 0 {
			return "", 0, fmt.Errorf("--source must be a positive line number")
		}
		return highlight.SideSource, cmd.source, nil
	default:
		return "", 0, fmt.Errorf("one of --human or --source is required")
	}
}

// projectedNode finds the node behind a projection: the node of the human line
// either hovered or resolved to.
func projectedNode(idx *linemap.Index, arena *phy.Arena, line int, side highlight.Side, hl highlight.Highlight) *phy.Node {
	human := line
	if side == highlight.SideSource {
		if hl.Empty() {
			return nil
		}
		human = hl.Lines[0]
	}

	id, ok := idx.NodeFor(human)
	if !ok {
		return nil
	}
	n, ok := arena.Get(id)
	if !ok {
		return nil
	}
	return n
}
