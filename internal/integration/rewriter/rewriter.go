// Package rewriter hands change reports to an external command that rewrites
// the source file.
package rewriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/config"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/pkg/executil"
	"github.com/colonyops/phyline/pkg/tmpl"
	"github.com/colonyops/phyline/pkg/utils"
)

// ErrEmptyOutput is returned when the command prints nothing.
var ErrEmptyOutput = errors.New("rewriter produced no output")

// Command is a reconcile.Rewriter backed by a shell command. The rendered
// prompt is written to the command's stdin and its stdout is the new source.
type Command struct {
	cfg      config.RewriterConfig
	executor executil.Executor
	log      zerolog.Logger
	tempDir  string
}

// Option configures a Command.
type Option func(*Command)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Command) { c.log = l }
}

// WithTempDir sets where rewritten sources are staged for validation.
func WithTempDir(dir string) Option {
	return func(c *Command) { c.tempDir = dir }
}

// New creates a Command.
func New(cfg config.RewriterConfig, executor executil.Executor, opts ...Option) *Command {
	c := &Command{
		cfg:      cfg,
		executor: executor,
		log:      logging.Component("rewriter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ reconcile.Rewriter = (*Command)(nil)

// Rewrite runs the configured command and returns the source it produced.
// When a validate command is configured the output must pass it.
func (c *Command) Rewrite(ctx context.Context, req reconcile.RewriteRequest) (string, error) {
	prompt, err := c.Prompt(req)
	if err != nil {
		return "", err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.log.Debug().Ctx(ctx).
		Str("command", c.cfg.Command).
		Int("edits", len(req.Edits)).
		Int("prompt_bytes", len(prompt)).
		Msg("running rewriter")

	out, err := c.executor.Output(ctx, dir(req.SourcePath), c.cfg.Command, strings.NewReader(prompt))
	if err != nil {
		return "", fmt.Errorf("run %q: %w", c.cfg.Command, err)
	}

	source := string(out)
	if c.cfg.StripFences {
		source = utils.StripCodeFence(source)
	}
	if strings.TrimSpace(source) == "" {
		return "", ErrEmptyOutput
	}

	if err := c.validate(ctx, req.SourcePath, source); err != nil {
		return "", err
	}

	c.log.Debug().Ctx(ctx).Int("bytes", len(source)).Msg("rewrite complete")
	return source, nil
}

// Prompt renders the prompt template for req.
func (c *Command) Prompt(req reconcile.RewriteRequest) (string, error) {
	report, err := json.MarshalIndent(req.Report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	prompt, err := tmpl.Render(c.cfg.Prompt, config.RewriteTemplateData{
		SourcePath: req.SourcePath,
		Source:     req.Source,
		Report:     string(report),
		Edits:      len(req.Edits),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return prompt, nil
}

// validate stages source in a temporary file that keeps the original
// extension and runs the validate command against it.
func (c *Command) validate(ctx context.Context, sourcePath, source string) error {
	if c.cfg.Validate == "" {
		return nil
	}

	f, err := os.CreateTemp(c.tempDir, "phyline-*"+filepath.Ext(sourcePath))
	if err != nil {
		return fmt.Errorf("stage rewritten source: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.WriteString(source); err != nil {
		_ = f.Close()
		return fmt.Errorf("stage rewritten source: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("stage rewritten source: %w", err)
	}

	command, err := tmpl.Render(c.cfg.Validate, config.PathTemplateData{Path: f.Name()})
	if err != nil {
		return fmt.Errorf("render validate command: %w", err)
	}

	c.log.Debug().Ctx(ctx).Str("command", command).Msg("validating rewritten source")
	if err := executil.RunSh(ctx, c.executor, dir(sourcePath), command); err != nil {
		return fmt.Errorf("validate rewritten source: %w", err)
	}
	return nil
}

func dir(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}
