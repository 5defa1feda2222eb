package executil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir     string
	Command string
	Stdin   string
}

// Name returns the first word of the command line.
func (c RecordedCommand) Name() string {
	name, _, _ := strings.Cut(strings.TrimSpace(c.Command), " ")
	return name
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps command names to their output.
	// Key is the first word of the command line (e.g., "claude").
	Outputs map[string][]byte

	// Errors maps command names to their error.
	Errors map[string]error
}

// Output records the command and its stdin and returns configured output/error.
func (e *RecordingExecutor) Output(ctx context.Context, dir, command string, stdin io.Reader) ([]byte, error) {
	rec := RecordedCommand{Dir: dir, Command: command}
	if stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		rec.Stdin = string(data)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, rec)

	var out []byte
	var err error

	if e.Outputs != nil {
		out = e.Outputs[rec.Name()]
	}
	if e.Errors != nil {
		err = e.Errors[rec.Name()]
	}

	return out, err
}

// Recorded returns a copy of the recorded commands.
func (e *RecordingExecutor) Recorded() []RecordedCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RecordedCommand, len(e.Commands))
	copy(out, e.Commands)
	return out
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
