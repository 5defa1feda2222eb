package executil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellExecutor_StderrCappedAtMaxLen(t *testing.T) {
	ctx := context.Background()

	// Write twice the cap to stderr; only the first maxStderrLen bytes should appear in the error.
	longStderr := strings.Repeat("A", maxStderrLen*2)
	cmd := fmt.Sprintf("printf '%%s' '%s' >&2; exit 1", longStderr)

	_, err := ShellExecutor{}.Output(ctx, "", cmd, nil)
	require.Error(t, err)

	errMsg := err.Error()
	// Error format: "<stderr prefix>: exit status 1"
	assert.LessOrEqual(t, len(errMsg), maxStderrLen+20, "error message should be capped")
	assert.Equal(t, strings.Repeat("A", maxStderrLen), errMsg[:maxStderrLen], "first %d bytes should be the capped stderr", maxStderrLen)
}

func TestShellExecutor_PreservesExitError(t *testing.T) {
	err := RunSh(context.Background(), ShellExecutor{}, "", "echo 'error message' >&2; exit 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error message")

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr, "original ExitError should be preserved via wrapping")
}

func TestShellExecutor_NoStderrReturnsExitError(t *testing.T) {
	err := RunSh(context.Background(), ShellExecutor{}, "", "exit 2")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}

func TestShellExecutor_Output(t *testing.T) {
	ctx := context.Background()

	t.Run("stdout only", func(t *testing.T) {
		out, err := ShellExecutor{}.Output(ctx, "", "echo hello; echo noise >&2", nil)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(out))
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := ShellExecutor{}.Output(ctx, "", "tr a-z A-Z", strings.NewReader("prompt text"))
		require.NoError(t, err)
		assert.Equal(t, "PROMPT TEXT", string(out))
	})

	t.Run("dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644))

		out, err := ShellExecutor{}.Output(ctx, dir, "ls", nil)
		require.NoError(t, err)
		assert.Equal(t, "marker\n", string(out))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ShellExecutor{}.Output(cctx, "", "sleep 5", nil)
		require.Error(t, err)
	})
}

func TestRecordingExecutor(t *testing.T) {
	boom := errors.New("boom")
	rec := &RecordingExecutor{
		Outputs: map[string][]byte{"claude": []byte("updated")},
		Errors:  map[string]error{"python": boom},
	}
	ctx := context.Background()

	out, err := rec.Output(ctx, "/src", "claude -p", strings.NewReader("the prompt"))
	require.NoError(t, err)
	assert.Equal(t, "updated", string(out))

	err = RunSh(ctx, rec, "", "python -m py_compile x.py")
	require.ErrorIs(t, err, boom)

	got := rec.Recorded()
	require.Len(t, got, 2)
	assert.Equal(t, RecordedCommand{Dir: "/src", Command: "claude -p", Stdin: "the prompt"}, got[0])
	assert.Equal(t, "python", got[1].Name())

	rec.Reset()
	assert.Empty(t, rec.Recorded())
}
