package diff

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines around each hunk.
const DefaultContext = 3

// Unified renders a unified diff of the two texts. Identical texts produce an
// empty string.
func Unified(original, edited, fromName, toName string, context int) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        terminated(original),
		B:        terminated(edited),
		FromFile: fromName,
		ToFile:   toName,
		Context:  context,
	}
	if slices.Equal(ud.A, ud.B) {
		return "", nil
	}

	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	return out, nil
}

// terminated splits text the same way Compute does and gives every line a
// newline, the form difflib expects.
func terminated(text string) []string {
	lines := SplitLines(text)
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}

// LineType classifies a line of unified diff output.
type LineType int

const (
	LineContext LineType = iota
	LineAdd
	LineDelete
	LineHunk
	LineFileHeader
)

// UnifiedLine is one parsed line of unified diff output with the line numbers
// it refers to on either side (0 when not applicable).
type UnifiedLine struct {
	Type    LineType
	Content string
	OldLine int
	NewLine int
	Raw     string
}

// ParseUnified splits unified diff output into typed lines, tracking line
// numbers from the hunk headers.
func ParseUnified(text string) ([]UnifiedLine, error) {
	var (
		out          []UnifiedLine
		oldLn, newLn int
		inHunk       bool
	)

	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") {
			out = append(out, UnifiedLine{Type: LineFileHeader, Content: line, Raw: line})
			continue
		}

		if strings.HasPrefix(line, "@@") {
			oldStart, newStart, err := parseHunkHeader(line)
			if err != nil {
				return nil, fmt.Errorf("parse hunk header: %w", err)
			}
			out = append(out, UnifiedLine{Type: LineHunk, Content: line, OldLine: oldStart, NewLine: newStart, Raw: line})
			oldLn, newLn = oldStart, newStart
			inHunk = true
			continue
		}

		if !inHunk {
			continue
		}

		switch line[0] {
		case '+':
			out = append(out, UnifiedLine{Type: LineAdd, Content: line[1:], NewLine: newLn, Raw: line})
			newLn++
		case '-':
			out = append(out, UnifiedLine{Type: LineDelete, Content: line[1:], OldLine: oldLn, Raw: line})
			oldLn++
		case ' ':
			out = append(out, UnifiedLine{Type: LineContext, Content: line[1:], OldLine: oldLn, NewLine: newLn, Raw: line})
			oldLn++
			newLn++
		}
	}

	return out, nil
}

// parseHunkHeader reads the start lines of "@@ -a,b +c,d @@".
func parseHunkHeader(line string) (oldStart, newStart int, err error) {
	end := strings.Index(line[2:], "@@")
	if end == -1 {
		return 0, 0, fmt.Errorf("invalid hunk header %q: missing closing @@", line)
	}

	parts := strings.Fields(line[2 : end+2])
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "-") || !strings.HasPrefix(parts[1], "+") {
		return 0, 0, fmt.Errorf("invalid hunk header %q", line)
	}

	if oldStart, err = rangeStart(parts[0][1:]); err != nil {
		return 0, 0, fmt.Errorf("old range: %w", err)
	}
	if newStart, err = rangeStart(parts[1][1:]); err != nil {
		return 0, 0, fmt.Errorf("new range: %w", err)
	}
	return oldStart, newStart, nil
}

func rangeStart(s string) (int, error) {
	start, _, _ := strings.Cut(s, ",")
	return strconv.Atoi(start)
}
