package printer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/phyline/internal/core/styles"
)

// ColorizeJSON indents data and styles it with the current palette: keys in
// the primary color, strings as success, numbers as warning, literals as
// secondary. Invalid JSON is returned unchanged.
func ColorizeJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}

	var (
		raw = buf.String()
		out strings.Builder

		key     = lipgloss.NewStyle().Foreground(styles.CurrentPalette.Primary)
		str     = lipgloss.NewStyle().Foreground(styles.CurrentPalette.Success)
		num     = lipgloss.NewStyle().Foreground(styles.CurrentPalette.Warning)
		literal = lipgloss.NewStyle().Foreground(styles.CurrentPalette.Secondary)
	)

	for i := 0; i < len(raw); {
		switch ch := raw[i]; {
		case ch == '"':
			end := stringEnd(raw, i)
			tok := raw[i : end+1]
			if rest := strings.TrimLeft(raw[end+1:], " "); strings.HasPrefix(rest, ":") {
				out.WriteString(key.Render(tok))
			} else {
				out.WriteString(str.Render(tok))
			}
			i = end + 1
		case ch == '-' || (ch >= '0' && ch <= '9'):
			end := i + 1
			for end < len(raw) && strings.IndexByte("0123456789.eE+-", raw[end]) >= 0 {
				end++
			}
			out.WriteString(num.Render(raw[i:end]))
			i = end
		default:
			if lit := literalAt(raw, i); lit != "" {
				out.WriteString(literal.Render(lit))
				i += len(lit)
				continue
			}
			out.WriteByte(ch)
			i++
		}
	}

	return out.String()
}

func literalAt(s string, i int) string {
	for _, lit := range []string{"true", "false", "null"} {
		if strings.HasPrefix(s[i:], lit) {
			return lit
		}
	}
	return ""
}

// stringEnd returns the index of the quote closing the string opened at pos.
func stringEnd(s string, pos int) int {
	for i := pos + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return len(s) - 1
}
