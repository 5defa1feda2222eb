package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified(t *testing.T) {
	out, err := Unified("A\nB\nC", "A\nX\nC\n", "saved", "edited", DefaultContext)
	require.NoError(t, err)

	assert.Equal(t, "--- saved\n+++ edited\n@@ -1,3 +1,3 @@\n A\n-B\n+X\n C\n", out)

	out, err = Unified("A\r\nB\r\n", "A\nB\n", "a", "b", DefaultContext)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseUnified(t *testing.T) {
	lines, err := ParseUnified("--- saved\n+++ edited\n@@ -1,3 +1,3 @@\n A\n-B\n+X\n C\n")
	require.NoError(t, err)
	require.Len(t, lines, 7)

	tests := []struct {
		typ      LineType
		content  string
		oldLn, newLn int
	}{
		{LineFileHeader, "--- saved", 0, 0},
		{LineFileHeader, "+++ edited", 0, 0},
		{LineHunk, "@@ -1,3 +1,3 @@", 1, 1},
		{LineContext, "A", 1, 1},
		{LineDelete, "B", 2, 0},
		{LineAdd, "X", 0, 2},
		{LineContext, "C", 3, 3},
	}

	for i, tt := range tests {
		assert.Equal(t, tt.typ, lines[i].Type, "line %d", i)
		assert.Equal(t, tt.content, lines[i].Content, "line %d", i)
		assert.Equal(t, tt.oldLn, lines[i].OldLine, "line %d", i)
		assert.Equal(t, tt.newLn, lines[i].NewLine, "line %d", i)
	}
}

func TestParseUnified_BadHunk(t *testing.T) {
	_, err := ParseUnified("@@ -x +1 @@\n")
	assert.Error(t, err)

	_, err = ParseUnified("@@ -1,2 +1,2\n")
	assert.Error(t, err)
}
