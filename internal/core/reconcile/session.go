package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/highlight"
	"github.com/colonyops/phyline/internal/core/linemap"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/render"
)

// State is the edit session's position in the apply cycle.
type State int

const (
	StateClean State = iota
	StateDirty
	StateApplying
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateApplying:
		return "applying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one user's editing of one document. It owns the rendered tree,
// the index derived from it, the working human text and the apply state
// machine. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	sourcePath string
	pipeline   *Pipeline
	renderer   *render.Renderer
	strict     bool
	logger     zerolog.Logger

	root   *phy.Node
	arena  *phy.Arena
	index  *linemap.Index
	lines  []string
	source string

	saved   string
	text    string
	state   State
	stale   bool
	pending *diff.Model
	lastErr error
	hover   highlight.Tracker
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPipeline sets the pipeline Apply runs through.
func WithPipeline(p *Pipeline) SessionOption {
	return func(s *Session) { s.pipeline = p }
}

// WithRenderer overrides the default renderer.
func WithRenderer(r *render.Renderer) SessionOption {
	return func(s *Session) { s.renderer = r }
}

// WithStrictOverlaps rejects trees whose unrelated nodes share source lines.
func WithStrictOverlaps(strict bool) SessionOption {
	return func(s *Session) { s.strict = strict }
}

// WithSourcePath records where the source lives. It is passed to the rewriter.
func WithSourcePath(path string) SessionOption {
	return func(s *Session) { s.sourcePath = path }
}

// WithSessionLogger overrides the component logger.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession renders root and starts a clean session over it. A tree that
// cannot be indexed leaves the session with an empty index and the error
// available from LastError; the text is still editable.
func NewSession(id string, root *phy.Node, source string, opts ...SessionOption) *Session {
	s := &Session{
		id:     id,
		source: source,
		logger: logging.Component("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = render.New()
	}
	s.logger = s.logger.With().Str("session_id", id).Logger()

	res, arena, idx, err := s.build(root)
	if err != nil {
		idx = linemap.Empty()
		s.lastErr = err
	}
	s.swap(root, res, arena, idx)

	return s
}

// build renders root and indexes the result. A malformed tree still renders
// but gets no index: duplicate ids and out-of-range lines would resolve edits
// to the wrong nodes.
func (s *Session) build(root *phy.Node) (render.Result, *phy.Arena, *linemap.Index, error) {
	res := s.renderer.Render(root)
	arena := phy.NewArena(root)

	if root != nil {
		if err := phy.Validate(root, phy.WithMaxLine(len(diff.SplitLines(s.source)))); err != nil {
			s.logger.Warn().Err(err).Msg("tree is malformed, lines left unmapped")
			return res, arena, nil, err
		}
	}

	idx, err := linemap.Build(res.Mappings,
		linemap.WithAncestry(arena.IsAncestor),
		linemap.WithStrictOverlaps(s.strict),
		linemap.WithLogger(s.logger),
	)
	if err != nil {
		return res, arena, nil, fmt.Errorf("build index: %w", err)
	}
	return res, arena, idx, nil
}

func (s *Session) swap(root *phy.Node, res render.Result, arena *phy.Arena, idx *linemap.Index) {
	s.root = root
	s.arena = arena
	s.index = idx
	s.lines = res.Lines
	s.saved = res.Text()
	s.text = s.saved
}

func (s *Session) ID() string {
	return s.id
}

// Edit replaces the working human text. While an apply is in flight only the
// text changes; the state is settled when the apply completes.
func (s *Session) Edit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	if s.state == StateApplying {
		return
	}
	s.state = s.settledState()
}

func (s *Session) settledState() State {
	if s.text == s.saved {
		return StateClean
	}
	return StateDirty
}

// Text returns the working human text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Saved returns the human text the last successful apply (or load) produced.
func (s *Session) Saved() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Source returns the current source text.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Lines returns the rendered lines of the loaded tree.
func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Root returns the loaded tree.
func (s *Session) Root() *phy.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Index returns the index for the loaded tree. It is empty while the session
// is stale.
func (s *Session) Index() *linemap.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) Arena() *phy.Arena {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arena
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stale reports whether the source changed since the tree was loaded. A stale
// session needs Reload before it can apply again.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// LastError returns the error of the last failed operation, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Diff computes the changes between the saved and the working text.
func (s *Session) Diff() diff.Model {
	s.mu.Lock()
	saved, text := s.saved, s.text
	s.mu.Unlock()
	return diff.Compute(saved, text)
}

// Pending returns the diff of the apply in flight or of the last failed one.
func (s *Session) Pending() (diff.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return diff.Model{}, false
	}
	return *s.pending, true
}

// Apply submits the working text. It returns ErrConcurrentApply without any
// state change while another apply is running and is a no-op on a clean
// session. On failure the diff stays pending and the session stays dirty.
func (s *Session) Apply(ctx context.Context) (Result, error) {
	s.mu.Lock()

	switch s.state {
	case StateApplying:
		s.mu.Unlock()
		return Result{}, ErrConcurrentApply
	case StateClean:
		res := Result{Source: s.source}
		s.mu.Unlock()
		return res, nil
	}

	if s.stale {
		err := fmt.Errorf("%w: edits were applied since the tree was loaded, reload first", ErrUnresolvedMapping)
		s.lastErr = err
		s.mu.Unlock()
		return Result{Source: s.source}, err
	}

	if s.pipeline == nil {
		err := &RejectedError{Err: errors.New("session has no pipeline")}
		s.lastErr = err
		s.mu.Unlock()
		return Result{Source: s.source}, err
	}

	submitted := s.text
	model := diff.Compute(s.saved, submitted)
	in := ApplyInput{
		Source:     s.source,
		SourcePath: s.sourcePath,
		Saved:      s.saved,
		Edited:     submitted,
		Diff:       &model,
		Index:      s.index,
		Arena:      s.arena,
	}
	s.pending = &model
	s.state = StateApplying
	pipeline := s.pipeline
	s.mu.Unlock()

	ctx = logging.WithSessionID(ctx, s.id)
	res, err := pipeline.Apply(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastErr = err
		s.state = s.settledState()
		s.logger.Warn().Err(err).Str("state", s.state.String()).Msg("apply failed, changes kept")
		return res, err
	}

	s.source = res.Source
	s.saved = submitted
	s.pending = nil
	s.lastErr = nil
	// Once a diff has been submitted the saved text no longer matches the
	// rendering the index was built from, whether or not the source changed.
	if !res.Diff.Empty() {
		s.stale = true
		s.index = linemap.Empty()
		s.hover.Leave()
	}
	s.state = s.settledState()

	s.logger.Info().
		Int("edits", len(res.Edits)).
		Bool("changed", res.Changed).
		Str("state", s.state.String()).
		Msg("apply succeeded")

	return res, nil
}

// Reload replaces the tree, typically with one regenerated from the updated
// source, and resets the human text to its rendering. Unapplied edits are
// discarded. When the new tree cannot be indexed the previous tree and index
// are kept.
func (s *Session) Reload(root *phy.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateApplying {
		return ErrConcurrentApply
	}

	res, arena, idx, err := s.build(root)
	if err != nil {
		s.lastErr = err
		return err
	}
	s.swap(root, res, arena, idx)

	s.stale = false
	s.pending = nil
	s.lastErr = nil
	s.state = StateClean
	s.hover.Leave()
	return nil
}

// Hover projects the pointer position onto the other panel.
func (s *Session) Hover(line int, side highlight.Side) highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hover.Hover(s.index, line, side)
}

// Highlight returns the current hover projection, empty if the index changed
// since it was computed.
func (s *Session) Highlight() highlight.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hover.Current(s.index)
}

// Leave clears the hover state.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hover.Leave()
}
