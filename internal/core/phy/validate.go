package phy

import (
	"fmt"

	"github.com/hay-kot/criterio"
)

type validateOptions struct {
	maxLine int
}

// ValidateOption configures Validate.
type ValidateOption func(*validateOptions)

// WithMaxLine rejects ranges that end past line n of the source. Zero disables
// the check.
func WithMaxLine(n int) ValidateOption {
	return func(o *validateOptions) { o.maxLine = n }
}

// Validate checks that a tree can be rendered and mapped. Every problem is
// reported as a field error keyed by its path in the tree, e.g.
// "main.children[2].line_range". The returned error wraps ErrMalformedTree.
func Validate(root *Node, opts ...ValidateOption) error {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if root == nil {
		return fmt.Errorf("%w: %w", ErrMalformedTree, criterio.NewFieldErrors("main", fmt.Errorf("root node is missing")))
	}

	var (
		errs criterio.FieldErrorsBuilder
		seen = make(map[string]string)
	)

	var visit func(n *Node, path string)
	visit = func(n *Node, path string) {
		if n.ID == "" && (n.HasText() || n.SourceRange != nil) {
			errs = errs.Append(path+".id", fmt.Errorf("id is required on nodes with text or a line range"))
		}

		if n.ID != "" {
			if first, ok := seen[n.ID]; ok {
				errs = errs.Append(path+".id", fmt.Errorf("duplicate id %q (first used at %s)", n.ID, first))
			} else {
				seen[n.ID] = path
			}
		}

		switch r := n.SourceRange; {
		case r == nil:
		case !r.Valid():
			errs = errs.Append(path+".line_range", fmt.Errorf("invalid range [%d, %d]", r.Start, r.End))
		case o.maxLine > 0 && r.End > o.maxLine:
			errs = errs.Append(path+".line_range", fmt.Errorf("range [%d, %d] ends past the last source line %d", r.Start, r.End, o.maxLine))
		}

		for i, child := range n.Children {
			childPath := fmt.Sprintf("%s.children[%d]", path, i)
			if child == nil {
				errs = errs.Append(childPath, fmt.Errorf("node is null"))
				continue
			}
			visit(child, childPath)
		}
	}
	visit(root, "main")

	if err := errs.ToError(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}
	return nil
}
