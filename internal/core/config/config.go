// Package config handles configuration loading and validation for phyline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/phyline/internal/core/styles"
)

// DefaultRewritePrompt is the prompt handed to the rewriting command. It is a
// text/template rendered with RewriteTemplateData.
const DefaultRewritePrompt = `You are an assistant that applies abstracted diffs back onto original source code.

## Context
- The user edits source code indirectly by changing a natural-language outline of it.
- The change report below lists which outline nodes changed, the source lines each
  node was derived from and what was added, removed or modified in plain language.
- Your job: rewrite the source file so it fully reflects the user's intended changes.

## Rules
- Only change the code covered by the listed source line ranges unless a change
  requires a matching update elsewhere (for example a new parameter used by callers).
- Preserve all unaffected code exactly as-is.
- If a node was removed, remove the code it describes.
- Do not output explanations, only the complete updated file.

## Change report

{{ .Report }}

## File: {{ .SourcePath }}

{{ .Source }}
`

// Config holds the application configuration.
type Config struct {
	Render   RenderConfig   `yaml:"render"`
	Mapping  MappingConfig  `yaml:"mapping"`
	Rewriter RewriterConfig `yaml:"rewriter"`
	Provider ProviderConfig `yaml:"provider"`
	Editor   string         `yaml:"editor"`
	Theme    string         `yaml:"theme"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// RenderConfig controls how trees are turned into human text.
type RenderConfig struct {
	Indent   int  `yaml:"indent"`    // spaces per nesting level
	LineInfo bool `yaml:"line_info"` // append "(lines a–b)" to ranged nodes
}

// MappingConfig controls index construction.
type MappingConfig struct {
	// StrictOverlaps rejects trees where unrelated nodes claim the same source
	// line instead of resolving them last-write-wins.
	StrictOverlaps bool `yaml:"strict_overlaps"`
}

// RewriterConfig configures the command that rewrites source from a change
// report.
type RewriterConfig struct {
	Command     string        `yaml:"command"`      // shell command; the prompt is written to its stdin
	Prompt      string        `yaml:"prompt"`       // prompt template
	Validate    string        `yaml:"validate"`     // optional check run against the rewritten file, templated with .Path
	Timeout     time.Duration `yaml:"timeout"`      // bound on a single rewrite
	StripFences bool          `yaml:"strip_fences"` // drop a Markdown code fence around the output
}

// ProviderConfig configures how trees are regenerated after an apply.
type ProviderConfig struct {
	// Command prints a PHY document for the source file. Templated with .Path.
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// RewriteTemplateData defines the fields available to rewriter.prompt.
type RewriteTemplateData struct {
	SourcePath string
	Source     string
	Report     string // change report as indented JSON
	Edits      int
}

// PathTemplateData defines the fields available to rewriter.validate and
// provider.command.
type PathTemplateData struct {
	Path string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Indent: 4,
		},
		Rewriter: RewriterConfig{
			Command:     "claude -p",
			Prompt:      DefaultRewritePrompt,
			Timeout:     5 * time.Minute,
			StripFences: true,
		},
		Provider: ProviderConfig{
			Timeout: 5 * time.Minute,
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Rewriter.Prompt) == "" {
		c.Rewriter.Prompt = defaults.Rewriter.Prompt
	}
	if c.Rewriter.Timeout == 0 {
		c.Rewriter.Timeout = defaults.Rewriter.Timeout
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = defaults.Provider.Timeout
	}
	if c.Editor == "" {
		c.Editor = os.Getenv("EDITOR")
	}
	if c.Editor == "" {
		c.Editor = "vi"
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Render.Indent < 0 || c.Render.Indent > 16 {
		return fmt.Errorf("render.indent must be between 0 and 16")
	}

	if strings.TrimSpace(c.Rewriter.Command) == "" {
		return fmt.Errorf("rewriter.command cannot be empty")
	}

	if c.Rewriter.Timeout < 0 {
		return fmt.Errorf("rewriter.timeout cannot be negative")
	}

	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout cannot be negative")
	}

	if _, ok := styles.GetPalette(c.Theme); c.Theme != "" && !ok {
		return fmt.Errorf("unknown theme %q, available: %s", c.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	return nil
}

// IndentUnit returns the string emitted per nesting level.
func (c *Config) IndentUnit() string {
	return strings.Repeat(" ", c.Render.Indent)
}
