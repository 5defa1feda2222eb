package viewer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/highlight"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/internal/core/styles"
)

func (m Model) panelWidths() (left, right int) {
	left = m.width / 2
	return left, m.width - left
}

func (m Model) footer() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderStatus(), m.help.View(m.keys))
}

func (m Model) diffHeight() int {
	if !m.showDiff {
		return 0
	}
	return max(m.height/3, panelChrome+1)
}

// visibleRows is the number of text lines each side panel can show.
func (m Model) visibleRows() int {
	body := m.height - headerHeight - lipgloss.Height(m.footer()) - m.diffHeight()
	return max(body-panelChrome, 1)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	hl := m.deps.Session.Highlight()
	left, right := m.panelWidths()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPanel(paneHuman, "Description", left, hl),
		m.renderPanel(paneSource, "Source", right, hl),
	)

	parts := []string{m.renderHeader(), body}
	if m.showDiff {
		parts = append(parts, m.renderDiff())
	}
	parts = append(parts, m.footer())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	s := m.deps.Session

	var state string
	switch {
	case m.applying:
		state = styles.WarningStyle.Render("applying")
	case m.reloading:
		state = styles.WarningStyle.Render("reloading")
	case s.Stale():
		state = styles.ErrorStyle.Render("stale")
	case s.State() == reconcile.StateDirty:
		state = styles.WarningStyle.Render("modified")
	default:
		state = styles.SuccessStyle.Render("clean")
	}

	header := styles.TitleStyle.Render("phyline") + " " +
		styles.MutedStyle.Render(m.deps.SourcePath) + "  " + state
	return ansi.Truncate(header, m.width, "…")
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ansi.Truncate(styles.MutedStyle.Render(m.summary), m.width, "…")
	}

	style := styles.StatusStyle
	switch m.statusLevel {
	case levelWarn:
		style = styles.WarningStyle
	case levelError:
		style = styles.ErrorStyle
	}
	return ansi.Truncate(style.Render(m.status), m.width, "…")
}

func (m Model) renderPanel(p pane, title string, outer int, hl highlight.Highlight) string {
	inner := max(outer-2, 1)
	lines := m.lines(p)
	rows := m.visibleRows()
	gutter := len(strconv.Itoa(max(len(lines), 1)))
	focused := m.focus == p

	titleStyle := styles.MutedStyle
	if focused {
		titleStyle = styles.TitleStyle
	}
	out := make([]string, 0, rows+1)
	out = append(out, ansi.Truncate(titleStyle.Render(title), inner, "…"))

	for i := m.offset[p]; i < m.offset[p]+rows; i++ {
		if i >= len(lines) {
			out = append(out, "")
			continue
		}
		line := i + 1

		num := fmt.Sprintf("%*d", gutter, line)
		text := ansi.Truncate(lines[i], max(inner-gutter-1, 0), "…")
		pad := strings.Repeat(" ", max(inner-gutter-1-ansi.StringWidth(text), 0))

		switch {
		case hl.Side == p.side() && hl.Contains(line):
			out = append(out, styles.HighlightStyle.Render(num+" "+text+pad))
		case m.hoverLine == line && m.hoverPane == p, focused && m.cursor[p] == line:
			out = append(out, styles.CursorStyle.Render(num+" "+text+pad))
		default:
			out = append(out, styles.LineNumberStyle.Render(num)+" "+text)
		}
	}

	style := styles.PanelStyle
	if focused {
		style = styles.PanelFocusedStyle
	}
	return style.Width(inner).Render(strings.Join(out, "\n"))
}

func (m Model) renderDiff() string {
	title := "Diff"
	if _, ok := m.deps.Session.Pending(); ok && !m.applying {
		title += " (pending, last apply failed)"
	}

	titleStyle := styles.MutedStyle
	style := styles.PanelStyle
	if m.focus == paneDiff {
		titleStyle = styles.TitleStyle
		style = styles.PanelFocusedStyle
	}

	content := titleStyle.Render(title) + "\n" + m.diffView.View()
	return style.Width(max(m.width-2, 1)).Render(content)
}

// colorizeUnified styles unified diff output line by line.
func colorizeUnified(text string) string {
	if text == "" {
		return styles.MutedStyle.Render("no changes")
	}

	parsed, err := diff.ParseUnified(text)
	if err != nil {
		return text
	}

	out := make([]string, 0, len(parsed))
	for _, l := range parsed {
		switch l.Type {
		case diff.LineAdd:
			out = append(out, styles.DiffAddStyle.Render(l.Raw))
		case diff.LineDelete:
			out = append(out, styles.DiffDeleteStyle.Render(l.Raw))
		case diff.LineHunk:
			out = append(out, styles.DiffHunkStyle.Render(l.Raw))
		case diff.LineFileHeader:
			out = append(out, styles.DiffHeaderStyle.Render(l.Raw))
		default:
			out = append(out, l.Raw)
		}
	}
	return strings.Join(out, "\n")
}
