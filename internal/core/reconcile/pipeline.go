// Package reconcile turns edits of the human text into source changes: it
// diffs the text, resolves every change to the source lines it came from and
// hands the result to a rewriting collaborator.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
)

// RewriteRequest is everything a collaborator needs to rewrite the source.
type RewriteRequest struct {
	Source     string
	SourcePath string
	Edits      []Edit
	Report     Report
}

// Rewriter performs the actual source substitution and revalidation.
type Rewriter interface {
	Rewrite(ctx context.Context, req RewriteRequest) (string, error)
}

// RewriterFunc adapts a function to Rewriter.
type RewriterFunc func(ctx context.Context, req RewriteRequest) (string, error)

func (f RewriterFunc) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	return f(ctx, req)
}

// ApplyInput is one apply round trip. Diff, when set, is used instead of
// diffing Saved against Edited.
type ApplyInput struct {
	Source     string
	SourcePath string
	Saved      string
	Edited     string
	Diff       *diff.Model
	Index      *linemap.Index
	Arena      *phy.Arena
}

// Result is the outcome of Apply. Diff is populated even when Apply fails so
// callers can keep it for review.
type Result struct {
	Source  string     `json:"source"`
	Changed bool       `json:"changed"`
	Diff    diff.Model `json:"diff"`
	Edits   []Edit     `json:"edits"`
	Report  Report     `json:"report"`
}

// Pipeline orchestrates diff, resolution and rewrite.
type Pipeline struct {
	rewriter Rewriter
	logger   zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger overrides the component logger.
func WithPipelineLogger(l zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

func NewPipeline(rw Rewriter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rewriter: rw,
		logger:   logging.Component("reconcile"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan runs the diff and resolution steps without calling the rewriter.
func (p *Pipeline) Plan(in ApplyInput) (Result, Resolution) {
	var model diff.Model
	if in.Diff != nil {
		model = *in.Diff
	} else {
		model = diff.Compute(in.Saved, in.Edited)
	}

	res := Result{Source: in.Source, Diff: model}
	if model.Empty() {
		return res, Resolution{}
	}

	resolution := Resolve(model, in.Index)
	res.Edits = resolution.Edits
	res.Report = NewReport(resolution.Edits, in.Arena, in.SourcePath)
	return res, resolution
}

// Apply diffs the saved human text against the edited one, resolves every
// change through the index and asks the rewriter for the updated source.
// An empty diff is a successful no-op.
func (p *Pipeline) Apply(ctx context.Context, in ApplyInput) (Result, error) {
	res, resolution := p.Plan(in)
	if res.Diff.Empty() {
		p.logger.Debug().Ctx(ctx).Msg("nothing to apply")
		return res, nil
	}

	if !resolution.Resolved() {
		p.logger.Warn().Ctx(ctx).
			Int("unmappable", len(resolution.Unmappable)).
			Int("entries", res.Diff.Len()).
			Msg("changes touch unmapped lines")
		return res, &UnresolvedError{Entries: resolution.Unmappable}
	}

	if p.rewriter == nil {
		return res, &RejectedError{Err: errors.New("no rewriter configured")}
	}

	p.logger.Info().Ctx(ctx).
		Int("edits", len(res.Edits)).
		Str("source", in.SourcePath).
		Msg("applying changes")

	updated, err := p.rewriter.Rewrite(ctx, RewriteRequest{
		Source:     in.Source,
		SourcePath: in.SourcePath,
		Edits:      res.Edits,
		Report:     res.Report,
	})
	if err != nil {
		p.logger.Error().Ctx(ctx).Err(err).Msg("rewriter rejected changes")

		var rejected *RejectedError
		if errors.As(err, &rejected) {
			return res, err
		}
		return res, &RejectedError{Err: fmt.Errorf("rewrite: %w", err)}
	}

	res.Source = updated
	res.Changed = updated != in.Source
	return res, nil
}
