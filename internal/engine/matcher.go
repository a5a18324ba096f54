package engine

import (
	"github.com/roach88/ilpatch/internal/ir"
)

// matchAt reports whether every pattern element holds for the window
// starting at i. The window must fit entirely inside seq.
func matchAt(seq ir.Sequence, i int, pattern []ir.PatternElement, eq ir.OperandComparator) bool {
	if i < 0 || i+len(pattern) > len(seq) {
		return false
	}
	for k, p := range pattern {
		if !p.Matches(seq[i+k], eq) {
			return false
		}
	}
	return true
}

// findMatches scans seq left to right for non-overlapping windows matching
// pattern.
//
// Rules:
//   - A candidate starting below minSafety is recorded in skipped, does not
//     count toward limit, and scanning resumes at the next index.
//   - An accepted match resumes scanning one past its window.
//   - When limit > 0, scanning stops after limit accepted matches.
//
// An empty result is not an error; the caller decides what absence means.
func findMatches(seq ir.Sequence, pattern []ir.PatternElement, minSafety, limit int, eq ir.OperandComparator) (matches []ir.Match, skipped []int) {
	if len(pattern) == 0 {
		return nil, nil
	}
	for i := 0; i+len(pattern) <= len(seq); {
		if !matchAt(seq, i, pattern, eq) {
			i++
			continue
		}
		if i < minSafety {
			skipped = append(skipped, i)
			i++
			continue
		}
		matches = append(matches, ir.Match{Start: i, Length: len(pattern)})
		if limit > 0 && len(matches) == limit {
			break
		}
		i += len(pattern)
	}
	return matches, skipped
}
