// Package printer writes styled, human facing command output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/colonyops/phyline/internal/core/styles"
)

// Printer writes status lines to a writer.
type Printer struct {
	w io.Writer
}

func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

type ctxKey struct{}

// NewContext stores p in ctx.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored in ctx, or one writing to stdout.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stdout)
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Successf(format string, args ...any) {
	p.prefixed(styles.SuccessStyle.Render("✔"), format, args...)
}

func (p *Printer) Infof(format string, args ...any) {
	p.prefixed(styles.StatusStyle.Render("•"), format, args...)
}

func (p *Printer) Warnf(format string, args ...any) {
	p.prefixed(styles.WarningStyle.Render("!"), format, args...)
}

func (p *Printer) Errorf(format string, args ...any) {
	p.prefixed(styles.ErrorStyle.Render("✘"), format, args...)
}

func (p *Printer) prefixed(icon, format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, "%s %s\n", icon, fmt.Sprintf(format, args...))
}
