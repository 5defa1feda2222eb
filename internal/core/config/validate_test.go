package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Rewriter.Validate = "python -m py_compile {{ shq .Path }}"
	cfg.Provider.Command = "pyh-gen {{ .Path }}"

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_Templates(t *testing.T) {
	cfg := validConfig(t)
	cfg.Rewriter.Prompt = "{{ .Source }"
	cfg.Rewriter.Validate = "check {{ .Missing }}"
	cfg.Provider.Command = "gen {{ .Path }}"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "rewriter.prompt", fieldErrs[0].Field)
	assert.Equal(t, "rewriter.validate", fieldErrs[1].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "template error")
}

func TestValidateDeep_FileAccess(t *testing.T) {
	cfg := validConfig(t)
	notDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0o644))
	cfg.DataDir = notDir

	err := cfg.ValidateDeep(t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"config_file", "data_dir"}, fields)
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	cfg.Rewriter.Command = "definitely-not-a-real-binary-xyz --flag"

	warnings := cfg.Warnings()

	items := make([]string, 0, len(warnings))
	for _, w := range warnings {
		items = append(items, w.Category+"."+w.Item)
	}
	assert.ElementsMatch(t, []string{"Rewriter.command", "Provider.command", "Rewriter.validate"}, items)
}
