package rewriter

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/phyline/internal/core/config"
	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/pkg/executil"
)

func testConfig() config.RewriterConfig {
	cfg := config.DefaultConfig().Rewriter
	cfg.Command = "rewrite-tool --quiet"
	cfg.Timeout = time.Minute
	return cfg
}

func testRequest() reconcile.RewriteRequest {
	edit := reconcile.Edit{
		Entry: diff.Entry{
			Type:            diff.Modified,
			ModifiedContent: "Returns the square of n",
			Description:     "modified line 2 (was line 2)",
		},
		SourceRange: phy.LineRange{Start: 1, End: 2},
		NodeIDs:     []string{"f"},
		HumanLines:  []int{2},
	}
	return reconcile.RewriteRequest{
		Source:     "def f(n):\n    return n\n",
		SourcePath: "/src/pkg/mod.py",
		Edits:      []reconcile.Edit{edit},
		Report:     reconcile.NewReport([]reconcile.Edit{edit}, nil, "/src/pkg/mod.py"),
	}
}

func TestCommand_Rewrite(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		strip   bool
		want    string
		wantErr error
	}{
		{
			name:   "plain output",
			output: "def f(n):\n    return n * n\n",
			strip:  true,
			want:   "def f(n):\n    return n * n\n",
		},
		{
			name:   "fenced output is unwrapped",
			output: "```python\ndef f(n):\n    return n * n\n```\n",
			strip:  true,
			want:   "def f(n):\n    return n * n\n",
		},
		{
			name:   "fence kept when stripping is off",
			output: "```\nx\n```",
			strip:  false,
			want:   "```\nx\n```",
		},
		{
			name:    "empty output",
			output:  "  \n",
			strip:   true,
			wantErr: ErrEmptyOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &executil.RecordingExecutor{
				Outputs: map[string][]byte{"rewrite-tool": []byte(tt.output)},
			}
			cfg := testConfig()
			cfg.StripFences = tt.strip

			got, err := New(cfg, exec).Rewrite(context.Background(), testRequest())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			cmds := exec.Recorded()
			require.Len(t, cmds, 1)
			assert.Equal(t, "/src/pkg", cmds[0].Dir)
			assert.Equal(t, "rewrite-tool --quiet", cmds[0].Command)
			assert.Contains(t, cmds[0].Stdin, "## File: /src/pkg/mod.py")
			assert.Contains(t, cmds[0].Stdin, `"node_id": "f"`)
			assert.Contains(t, cmds[0].Stdin, "def f(n):")
		})
	}
}

func TestCommand_RewriteCommandError(t *testing.T) {
	boom := errors.New("exit status 2")
	exec := &executil.RecordingExecutor{
		Errors: map[string]error{"rewrite-tool": boom},
	}

	_, err := New(testConfig(), exec).Rewrite(context.Background(), testRequest())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rewrite-tool --quiet")
}

func TestCommand_Validate(t *testing.T) {
	cfg := testConfig()
	cfg.Validate = "checker {{ .Path | shq }}"

	t.Run("passes", func(t *testing.T) {
		exec := &executil.RecordingExecutor{
			Outputs: map[string][]byte{"rewrite-tool": []byte("x = 1\n")},
		}
		got, err := New(cfg, exec, WithTempDir(t.TempDir())).Rewrite(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "x = 1\n", got)

		cmds := exec.Recorded()
		require.Len(t, cmds, 2)
		assert.Equal(t, "checker", cmds[1].Name())
		assert.Contains(t, cmds[1].Command, ".py'", "staged file keeps the source extension")
	})

	t.Run("rejects", func(t *testing.T) {
		exec := &executil.RecordingExecutor{
			Outputs: map[string][]byte{"rewrite-tool": []byte("x = \n")},
			Errors:  map[string]error{"checker": errors.New("SyntaxError: invalid syntax")},
		}
		_, err := New(cfg, exec, WithTempDir(t.TempDir())).Rewrite(context.Background(), testRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SyntaxError")
	})

	t.Run("staged file is removed", func(t *testing.T) {
		tmp := t.TempDir()
		exec := &executil.RecordingExecutor{
			Outputs: map[string][]byte{"rewrite-tool": []byte("x = 1\n")},
		}
		_, err := New(cfg, exec, WithTempDir(tmp)).Rewrite(context.Background(), testRequest())
		require.NoError(t, err)

		entries, err := os.ReadDir(tmp)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestCommand_PipelineRejection(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Errors: map[string]error{"rewrite-tool": errors.New("model unavailable")},
	}
	pipeline := reconcile.NewPipeline(New(testConfig(), exec))

	root := &phy.Node{
		ID:          "f",
		Signature:   "def f(n):",
		SourceRange: &phy.LineRange{Start: 1, End: 2},
	}
	s := reconcile.NewSession("test", root, "def f(n):\n    return n\n", reconcile.WithPipeline(pipeline))
	s.Edit("def g(n):\n")

	_, err := s.Apply(context.Background())
	require.ErrorIs(t, err, reconcile.ErrApplyRejected)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Equal(t, reconcile.StateDirty, s.State())
}

func TestCommand_PromptTemplateError(t *testing.T) {
	cfg := testConfig()
	cfg.Prompt = "{{ .Missing }}"

	_, err := New(cfg, &executil.RecordingExecutor{}).Prompt(testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render prompt")
}
