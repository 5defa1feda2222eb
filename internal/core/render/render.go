// Package render linearizes a PHY tree into indented display lines and records,
// for every emitted line, the source range it was derived from.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
)

// DefaultIndent is one nesting level.
const DefaultIndent = "    "

// Result is the output of a render pass.
type Result struct {
	Lines    []string          `json:"lines"`
	Mappings []linemap.Mapping `json:"mappings"`
}

// Text joins the lines into a newline-terminated document.
func (r Result) Text() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return strings.Join(r.Lines, "\n") + "\n"
}

// Renderer turns trees into display lines. The zero value is not usable; use New.
type Renderer struct {
	indent   string
	lineInfo bool
	logger   zerolog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithIndent sets the string emitted once per nesting level.
func WithIndent(unit string) Option {
	return func(r *Renderer) { r.indent = unit }
}

// WithLineInfo appends "  (lines a–b)" to the first line of every node that
// has a source range.
func WithLineInfo(enabled bool) Option {
	return func(r *Renderer) { r.lineInfo = enabled }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		indent: DefaultIndent,
		logger: logging.Component("render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render walks root in pre-order. A nil root renders nothing and is logged; a
// node with an unusable range still renders its text but records no mapping.
func (r *Renderer) Render(root *phy.Node) Result {
	if root == nil {
		r.logger.Warn().Msg("render called without a root node")
		return Result{}
	}
	return r.render(root)
}

// RenderChecked validates the tree before rendering. On a malformed tree it
// returns an empty Result and an error wrapping phy.ErrMalformedTree.
func (r *Renderer) RenderChecked(root *phy.Node) (Result, error) {
	if err := phy.Validate(root); err != nil {
		return Result{}, fmt.Errorf("render: %w", err)
	}
	return r.render(root), nil
}

func (r *Renderer) render(root *phy.Node) Result {
	var res Result

	root.Walk(func(n *phy.Node, depth int) bool {
		if !n.HasText() {
			return true
		}

		mapped := n.SourceRange != nil && n.SourceRange.Valid()
		if n.SourceRange != nil && !mapped {
			r.logger.Warn().
				Str("node", n.ID).
				Stringer("range", *n.SourceRange).
				Msg("node has an invalid line range, lines left unmapped")
		}

		first := true
		emit := func(level int, text string) {
			line := strings.Repeat(r.indent, level) + text
			if first && r.lineInfo && mapped {
				line += LineInfo(*n.SourceRange)
			}
			first = false

			res.Lines = append(res.Lines, line)
			if mapped {
				res.Mappings = append(res.Mappings, linemap.Mapping{
					HumanLine:   len(res.Lines),
					SourceRange: *n.SourceRange,
					NodeID:      n.ID,
				})
			}
		}

		if n.Signature != "" {
			emit(depth, n.Signature)
		}

		if n.Description != "" {
			level := depth
			if n.Signature != "" {
				level++
			}
			for _, line := range strings.Split(strings.TrimSuffix(n.Description, "\n"), "\n") {
				emit(level, line)
			}
		}

		return true
	})

	return res
}

// LineInfo formats the range annotation appended in line-info mode.
func LineInfo(r phy.LineRange) string {
	return fmt.Sprintf("  (lines %d–%d)", r.Start, r.End)
}

var lineInfoRe = regexp.MustCompile(`\s*\(lines\s+\d+\s*[–-]\s*\d+\)\s*$`)

// StripLineInfo removes a trailing range annotation from a rendered line.
func StripLineInfo(line string) string {
	return lineInfoRe.ReplaceAllString(line, "")
}

// StripLineInfoText applies StripLineInfo to every line of text.
func StripLineInfoText(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = StripLineInfo(l)
	}
	return strings.Join(lines, "\n")
}
