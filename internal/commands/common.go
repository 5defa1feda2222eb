package commands

import (
	"fmt"
	"os"

	"github.com/colonyops/phyline/internal/core/config"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/internal/core/render"
	"github.com/colonyops/phyline/internal/integration/rewriter"
	"github.com/colonyops/phyline/pkg/executil"
	"github.com/colonyops/phyline/pkg/randid"
)

// newRenderer builds a renderer from the render config section. lineInfo
// overrides render.line_info when set on the command line.
func newRenderer(cfg *config.Config, lineInfo bool) *render.Renderer {
	return render.New(
		render.WithIndent(cfg.IndentUnit()),
		render.WithLineInfo(lineInfo || cfg.Render.LineInfo),
	)
}

// sessionOptions holds what newSession needs beyond the document.
type sessionOptions struct {
	sourcePath string
	source     string
	lineInfo   bool
	apply      bool
}

// newSession starts an edit session over doc. The rewriter is only wired when
// the caller intends to apply.
func newSession(cfg *config.Config, doc *phy.Document, opts sessionOptions) *reconcile.Session {
	sessOpts := []reconcile.SessionOption{
		reconcile.WithRenderer(newRenderer(cfg, opts.lineInfo)),
		reconcile.WithStrictOverlaps(cfg.Mapping.StrictOverlaps),
		reconcile.WithSourcePath(opts.sourcePath),
	}
	if opts.apply {
		rw := rewriter.New(cfg.Rewriter, executil.ShellExecutor{})
		sessOpts = append(sessOpts, reconcile.WithPipeline(reconcile.NewPipeline(rw)))
	}
	return reconcile.NewSession(randid.Generate(8), doc.Root(), opts.source, sessOpts...)
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// writeFileAtomic replaces path with data via a rename so a failed write never
// leaves a truncated source behind.
func writeFileAtomic(path string, data string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := path + ".phyline.tmp"
	if err := os.WriteFile(tmp, []byte(data), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
