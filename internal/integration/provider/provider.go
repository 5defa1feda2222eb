// Package provider supplies PHY documents for source files, either from a
// document on disk or from a generator command.
package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/config"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/pkg/executil"
	"github.com/colonyops/phyline/pkg/kv"
	"github.com/colonyops/phyline/pkg/tmpl"
)

// Provider produces the tree for a source file.
type Provider interface {
	Tree(ctx context.Context, sourcePath string) (*phy.Document, error)
}

// File always returns the document stored at Path. It cannot follow source
// changes, so after an apply the caller is expected to regenerate Path.
type File struct {
	Path string
}

func (f File) Tree(_ context.Context, _ string) (*phy.Document, error) {
	return phy.Load(f.Path)
}

// Command runs a generator command that prints a document for the source
// file. Documents are cached by source content, so reloading an unchanged
// file does not run the command again.
type Command struct {
	command  string
	executor executil.Executor
	cfg      config.ProviderConfig
	cache    *kv.Store[string, *phy.Document]
	log      zerolog.Logger
}

// NewCommand creates a Command from cfg.
func NewCommand(cfg config.ProviderConfig, executor executil.Executor) *Command {
	return &Command{
		command:  cfg.Command,
		executor: executor,
		cfg:      cfg,
		cache:    kv.New[string, *phy.Document](),
		log:      logging.Component("provider"),
	}
}

func (c *Command) Tree(ctx context.Context, sourcePath string) (*phy.Document, error) {
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	key := contentKey(sourcePath, source)
	if doc, ok := c.cache.Get(key); ok {
		c.log.Debug().Ctx(ctx).Str("source", sourcePath).Msg("document cache hit")
		return doc, nil
	}

	return c.cache.GetOrCompute(key, func() (*phy.Document, error) {
		return c.generate(ctx, sourcePath)
	})
}

func (c *Command) generate(ctx context.Context, sourcePath string) (*phy.Document, error) {
	command, err := tmpl.Render(c.command, config.PathTemplateData{Path: sourcePath})
	if err != nil {
		return nil, fmt.Errorf("render provider command: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.log.Debug().Ctx(ctx).Str("command", command).Msg("generating document")

	out, err := c.executor.Output(ctx, filepath.Dir(sourcePath), command, nil)
	if err != nil {
		return nil, fmt.Errorf("run provider command: %w", err)
	}

	doc, err := phy.Read(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("provider output: %w", err)
	}
	if doc.Metadata.SourceFile == "" {
		doc.Metadata.SourceFile = sourcePath
	}
	return doc, nil
}

func contentKey(path string, content []byte) string {
	sum := sha256.Sum256(content)
	return path + "@" + hex.EncodeToString(sum[:])
}

// FromConfig returns a Command provider when one is configured and otherwise
// falls back to the document at docPath.
func FromConfig(cfg config.ProviderConfig, executor executil.Executor, docPath string) Provider {
	if cfg.Command != "" {
		return NewCommand(cfg, executor)
	}
	return File{Path: docPath}
}
