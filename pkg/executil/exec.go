// Package executil provides shell execution utilities.
package executil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Executor runs shell command lines.
type Executor interface {
	// Output runs command through sh in dir (empty means inherit cwd), feeding
	// it stdin when non-nil, and returns what it wrote to stdout.
	Output(ctx context.Context, dir, command string, stdin io.Reader) ([]byte, error)
}

// ShellExecutor runs commands with sh -c.
type ShellExecutor struct{}

// Output executes the command. On failure, stderr is returned as the error
// message, capped at 500 bytes to keep large or ANSI-polluted output out of
// logs and the TUI. The original *exec.ExitError is preserved via wrapping so
// callers can inspect exit codes with errors.As.
func (ShellExecutor) Output(ctx context.Context, dir, command string, stdin io.Reader) ([]byte, error) {
	c := exec.CommandContext(ctx, "sh", "-c", command)
	if dir != "" {
		c.Dir = dir
	}
	if stdin != nil {
		c.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &limitedWriter{buf: &stderr, max: maxStderrLen}

	if err := c.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", msg, err)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// RunSh executes a command and discards its stdout. Errors carry stderr the
// same way Output does.
func RunSh(ctx context.Context, e Executor, dir, command string) error {
	_, err := e.Output(ctx, dir, command, nil)
	return err
}
