package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/phyline/internal/printer"
	"github.com/colonyops/phyline/pkg/iojson"
)

// openOutput returns path opened for writing, or fallback when path is empty.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return fallback, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

// expandPaths resolves glob patterns (including "**") to the matching files.
// Arguments without glob syntax are passed through so a missing file surfaces
// as a read error.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			out = append(out, arg)
			continue
		}

		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no documents match %q", arg)
		}
		slices.Sort(matches)
		out = append(out, matches...)
	}
	return slices.Compact(out), nil
}

// writeJSON writes v as indented JSON, colorized when w is a terminal.
func writeJSON(c *cli.Command, w io.Writer, v any) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, printer.ColorizeJSON(data))
		return err
	}
	return iojson.WriteWith(w, c.Root().ErrWriter, v)
}
