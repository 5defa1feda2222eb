package printer

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestColorizeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "indents object",
			input: `{"id":"f","line_range":[1,2],"ok":true,"parent":null}`,
			want:  "{\n  \"id\": \"f\",\n  \"line_range\": [\n    1,\n    2\n  ],\n  \"ok\": true,\n  \"parent\": null\n}",
		},
		{
			name:  "escaped quote inside string",
			input: `{"sig":"say \"hi\""}`,
			want:  "{\n  \"sig\": \"say \\\"hi\\\"\"\n}",
		},
		{
			name:  "negative and exponent numbers",
			input: `[-1,2.5e3]`,
			want:  "[\n  -1,\n  2.5e3\n]",
		},
		{
			name:  "invalid json unchanged",
			input: `not json`,
			want:  `not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ansi.Strip(ColorizeJSON([]byte(tt.input))))
		})
	}
}
