package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/phyline/internal/core/phy"
)

type NodesCmd struct {
	flags *Flags

	// flags
	doc        string
	match      string
	jsonOutput bool
}

// NewNodesCmd creates a new nodes command
func NewNodesCmd(flags *Flags) *NodesCmd {
	return &NodesCmd{flags: flags}
}

// nodeRow is one listed node.
type nodeRow struct {
	ID        string         `json:"id"`
	Type      string         `json:"type,omitempty"`
	Depth     int            `json:"depth"`
	HumanLine int            `json:"human_line,omitempty"`
	LineRange *phy.LineRange `json:"line_range,omitempty"`
	Signature string         `json:"signature,omitempty"`
}

// Register adds the nodes command to the application
func (cmd *NodesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "nodes",
		Usage:     "List the nodes of a PHY document",
		UsageText: "phyline nodes --doc <document> [--match <query>]",
		Description: `Lists every node of the main tree in pre-order with its depth, type and
source range. --match fuzzy-filters nodes by id, signature and description and
orders them by closeness.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "doc",
				Aliases:     []string{"d"},
				Usage:       "path to the PHY document",
				Required:    true,
				Destination: &cmd.doc,
			},
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "fuzzy filter on id, signature and description",
				Destination: &cmd.match,
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

func (cmd *NodesCmd) run(_ context.Context, c *cli.Command) error {
	doc, err := phy.Load(cmd.doc)
	if err != nil {
		return err
	}

	rows := listNodes(doc.Root())

	// first rendered line of each mapped node
	first := make(map[string]int)
	for _, m := range newRenderer(cmd.flags.Config, false).Render(doc.Root()).Mappings {
		if _, ok := first[m.NodeID]; !ok {
			first[m.NodeID] = m.HumanLine
		}
	}
	for i := range rows {
		rows[i].HumanLine = first[rows[i].ID]
	}
	if cmd.match != "" {
		rows = filterNodes(rows, doc, cmd.match)
	}

	if cmd.jsonOutput {
		if rows == nil {
			rows = []nodeRow{}
		}
		return writeJSON(c, c.Root().Writer, rows)
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(c.Root().Writer, "no nodes")
		return err
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tHUMAN\tSOURCE\tSIGNATURE")
	for _, r := range rows {
		human, lines := "-", "-"
		if r.HumanLine > 0 {
			human = strconv.Itoa(r.HumanLine)
		}
		if r.LineRange != nil {
			lines = r.LineRange.String()
		}
		_, _ = fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", strings.Repeat("  ", r.Depth), r.ID, r.Type, human, lines, r.Signature)
	}
	return w.Flush()
}

func listNodes(root *phy.Node) []nodeRow {
	if root == nil {
		return nil
	}

	var rows []nodeRow
	root.Walk(func(n *phy.Node, depth int) bool {
		rows = append(rows, nodeRow{
			ID:        n.ID,
			Type:      n.Type,
			Depth:     depth,
			LineRange: n.SourceRange,
			Signature: n.Signature,
		})
		return true
	})
	return rows
}

// filterNodes keeps the rows whose id, signature or description fuzzy-match
// query, closest first. Ties keep tree order.
func filterNodes(rows []nodeRow, doc *phy.Document, query string) []nodeRow {
	arena := phy.NewArena(doc.Root())

	targets := make([]string, len(rows))
	for i, r := range rows {
		desc := ""
		if n, ok := arena.Get(r.ID); ok {
			desc = n.Description
		}
		targets[i] = strings.Join([]string{r.ID, r.Signature, desc}, " ")
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]nodeRow, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, rows[r.OriginalIndex])
	}
	return out
}
