package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/colonyops/phyline/internal/core/diff"
)

var (
	// ErrUnresolvedMapping means a change touches human lines that have no
	// source range, so it cannot be applied automatically.
	ErrUnresolvedMapping = errors.New("unresolved mapping")

	// ErrApplyRejected means the rewriting collaborator refused or failed to
	// produce updated source.
	ErrApplyRejected = errors.New("apply rejected")

	// ErrConcurrentApply is returned when an apply is requested while another
	// one is in flight.
	ErrConcurrentApply = errors.New("apply already in progress")
)

// UnresolvedError lists the diff entries that could not be mapped back onto
// the source.
type UnresolvedError struct {
	Entries []diff.Entry
}

func (e *UnresolvedError) Error() string {
	descs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		descs = append(descs, entry.Description)
	}
	return fmt.Sprintf("%s: cannot auto-apply %d change(s): %s",
		ErrUnresolvedMapping, len(e.Entries), strings.Join(descs, "; "))
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolvedMapping
}

// RejectedError wraps a collaborator failure.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrApplyRejected, e.Err)
}

func (e *RejectedError) Unwrap() []error {
	return []error{ErrApplyRejected, e.Err}
}
