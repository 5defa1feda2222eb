package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/phyline/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// template syntax and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateTemplates(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if err := executableExists(c.Rewriter.Command); err != nil {
		warnings = append(warnings, ValidationWarning{
			Category: "Rewriter",
			Item:     "command",
			Message:  err.Error() + ", apply will fail until it is installed",
		})
	}

	if c.Provider.Command == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Provider",
			Item:     "command",
			Message:  "no provider command, trees cannot be regenerated after apply",
		})
	}

	if c.Rewriter.Validate == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Rewriter",
			Item:     "validate",
			Message:  "rewritten source is not revalidated",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// executableExists checks that the first word of a shell command resolves.
func executableExists(command string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return fmt.Errorf("executable not found: %s", fields[0])
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// validateTemplates renders every configured template against sample data so
// syntax errors and unknown fields surface before the first apply.
func (c *Config) validateTemplates() error {
	var errs criterio.FieldErrorsBuilder

	prompt := RewriteTemplateData{SourcePath: "/tmp/example.py", Source: "pass\n", Report: "{}", Edits: 1}
	if _, err := tmpl.Render(c.Rewriter.Prompt, prompt); err != nil {
		errs = errs.Append("rewriter.prompt", fmt.Errorf("template error: %w", err))
	}

	path := PathTemplateData{Path: "/tmp/example.py"}
	if c.Rewriter.Validate != "" {
		if _, err := tmpl.Render(c.Rewriter.Validate, path); err != nil {
			errs = errs.Append("rewriter.validate", fmt.Errorf("template error: %w", err))
		}
	}
	if c.Provider.Command != "" {
		if _, err := tmpl.Render(c.Provider.Command, path); err != nil {
			errs = errs.Append("provider.command", fmt.Errorf("template error: %w", err))
		}
	}

	return errs.ToError()
}
