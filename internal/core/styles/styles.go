// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// CurrentPalette is the active palette.
var CurrentPalette Palette

// Shared styles, rebuilt by SetTheme.
var (
	TitleStyle        lipgloss.Style
	PanelStyle        lipgloss.Style
	PanelFocusedStyle lipgloss.Style
	LineNumberStyle   lipgloss.Style
	CursorStyle       lipgloss.Style
	HighlightStyle    lipgloss.Style
	MutedStyle        lipgloss.Style
	StatusStyle       lipgloss.Style
	ErrorStyle        lipgloss.Style
	WarningStyle      lipgloss.Style
	SuccessStyle      lipgloss.Style
	HelpStyle         lipgloss.Style

	DiffAddStyle    lipgloss.Style
	DiffDeleteStyle lipgloss.Style
	DiffHunkStyle   lipgloss.Style
	DiffHeaderStyle lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	TitleStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Muted)
	PanelFocusedStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Primary)
	LineNumberStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	CursorStyle = lipgloss.NewStyle().
		Background(p.Surface).
		Bold(true)
	HighlightStyle = lipgloss.NewStyle().
		Background(p.Highlight).
		Foreground(p.Foreground)
	MutedStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	StatusStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	ErrorStyle = lipgloss.NewStyle().
		Foreground(p.Error)
	WarningStyle = lipgloss.NewStyle().
		Foreground(p.Warning)
	SuccessStyle = lipgloss.NewStyle().
		Foreground(p.Success)
	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Muted)

	DiffAddStyle = lipgloss.NewStyle().Foreground(p.Success)
	DiffDeleteStyle = lipgloss.NewStyle().Foreground(p.Error)
	DiffHunkStyle = lipgloss.NewStyle().Foreground(p.Secondary)
	DiffHeaderStyle = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Bold(true)
}

// SetThemeByName activates a built-in theme. It reports false, leaving the
// current theme active, when the name is unknown.
func SetThemeByName(name string) bool {
	p, ok := GetPalette(name)
	if !ok {
		return false
	}
	SetTheme(p)
	return true
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

func colorPtr(c lipgloss.Color) *string {
	if c == "" {
		return nil
	}
	s := string(c)
	return &s
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() ansi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig

	fg := colorPtr(CurrentPalette.Foreground)
	primary := colorPtr(CurrentPalette.Primary)
	secondary := colorPtr(CurrentPalette.Secondary)
	muted := colorPtr(CurrentPalette.Muted)
	surface := colorPtr(CurrentPalette.Surface)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = surface
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	cfg.Table.Color = fg

	return cfg
}
