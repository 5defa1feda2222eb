package diff

import "github.com/pmezard/go-difflib/difflib"

type op uint8

const (
	opMatch op = iota
	opDelete
	opInsert
)

// score ranks partial alignments: more matched lines first, then fewer change
// runs.
type score struct {
	lcs  int32
	runs int32
}

func (s score) better(o score) bool {
	if s.lcs != o.lcs {
		return s.lcs > o.lcs
	}
	return s.runs < o.runs
}

// align returns the edit script turning a into b. The common prefix and suffix
// are matched directly; the middle is solved with a dynamic program over two
// states (the previous step was a match, or it was part of a change run) so
// that the run count can be minimized alongside the match count. Ties prefer
// match, then delete, then insert.
func align(a, b []string) []op {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	ops := make([]op, 0, max(len(a), len(b)))
	for range prefix {
		ops = append(ops, opMatch)
	}
	ops = append(ops, alignMiddle(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix])...)
	for range suffix {
		ops = append(ops, opMatch)
	}

	return ops
}

const (
	stateMatch  = 0
	stateChange = 1
)

// maxAlignCells caps the table size of the exact alignment. Larger inputs are
// split on difflib's matching blocks and only the gaps between them are
// solved exactly.
var maxAlignCells = 1 << 20

func alignMiddle(a, b []string) []op {
	if ops, ok := alignTrivial(a, b); ok {
		return ops
	}
	if withinBudget(len(a), len(b)) {
		return alignExact(a, b)
	}
	return alignBlocks(a, b)
}

func alignTrivial(a, b []string) ([]op, bool) {
	switch {
	case len(a) == 0 && len(b) == 0:
		return nil, true
	case len(a) == 0:
		return repeat(opInsert, len(b)), true
	case len(b) == 0:
		return repeat(opDelete, len(a)), true
	}
	return nil, false
}

func withinBudget(n, m int) bool {
	// divide first so the product cannot overflow
	return n+1 <= maxAlignCells/(m+1)
}

// alignBlocks matches the longest common blocks found by difflib and aligns
// each gap between them on its own.
func alignBlocks(a, b []string) []op {
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)

	ops := make([]op, 0, max(len(a), len(b)))
	i, j := 0, 0
	for _, block := range matcher.GetMatchingBlocks() {
		ops = append(ops, alignGap(a[i:block.A], b[j:block.B])...)
		for range block.Size {
			ops = append(ops, opMatch)
		}
		i, j = block.A+block.Size, block.B+block.Size
	}

	return ops
}

func alignGap(a, b []string) []op {
	if ops, ok := alignTrivial(a, b); ok {
		return ops
	}
	if withinBudget(len(a), len(b)) {
		return alignExact(a, b)
	}
	// one run: every line of the gap is replaced
	return append(repeat(opDelete, len(a)), repeat(opInsert, len(b))...)
}

// alignExact solves the whole table. Both inputs must be non-empty.
func alignExact(a, b []string) []op {
	n, m := len(a), len(b)

	width := m + 1
	cells := (n + 1) * width

	// best[s][i*width+j] is the best score for aligning a[i:] with b[j:] when
	// the step before (i, j) left the walk in state s.
	var (
		best   [2][]score
		choice [2][]op
	)
	for s := range 2 {
		best[s] = make([]score, cells)
		choice[s] = make([]op, cells)
	}

	for i := n; i >= 0; i-- {
		for j := m; j >= 0; j-- {
			if i == n && j == m {
				continue
			}
			at := i*width + j

			for s := range 2 {
				var (
					top   score
					pick  op
					found bool
				)
				consider := func(candidate score, o op) {
					if !found || candidate.better(top) {
						top, pick, found = candidate, o, true
					}
				}

				newRun := int32(0)
				if s == stateMatch {
					newRun = 1
				}

				if i < n && j < m && a[i] == b[j] {
					next := best[stateMatch][(i+1)*width+j+1]
					consider(score{lcs: next.lcs + 1, runs: next.runs}, opMatch)
				}
				if i < n {
					next := best[stateChange][(i+1)*width+j]
					consider(score{lcs: next.lcs, runs: next.runs + newRun}, opDelete)
				}
				if j < m {
					next := best[stateChange][i*width+j+1]
					consider(score{lcs: next.lcs, runs: next.runs + newRun}, opInsert)
				}

				best[s][at] = top
				choice[s][at] = pick
			}
		}
	}

	ops := make([]op, 0, n+m)
	i, j, s := 0, 0, stateMatch
	for i < n || j < m {
		o := choice[s][i*width+j]
		ops = append(ops, o)
		switch o {
		case opMatch:
			i++
			j++
			s = stateMatch
		case opDelete:
			i++
			s = stateChange
		case opInsert:
			j++
			s = stateChange
		}
	}

	return ops
}

func repeat(o op, n int) []op {
	ops := make([]op, n)
	for i := range ops {
		ops[i] = o
	}
	return ops
}
