package engine

import (
	"slices"

	"github.com/roach88/ilpatch/internal/ir"
)

// applied is the outcome of folding every accepted match over a working copy.
type applied struct {
	instructions      ir.Sequence
	originalPositions []int
	positions         []int
	lengthDelta       int
}

// applyMatches splices the replacement at every match, in ascending original
// order, against a working copy of the original sequence.
//
// Each edit is applied to the already-shifted copy: the translator supplies
// the shifted start before the splice, then records the edit's net delta.
// The first reconciliation failure aborts the fold and the working copy is
// discarded (all-or-nothing).
func applyMatches(req *Request, matches []ir.Match) (*applied, error) {
	work := req.OriginalInstructions.Clone()
	var tr positionTranslator
	out := &applied{
		originalPositions: make([]int, 0, len(matches)),
		positions:         make([]int, 0, len(matches)),
	}

	for _, m := range matches {
		start := tr.translate(m.Start)
		block := req.ReplacementInstructions.Clone()

		var pos, delta int
		if req.IsInsertMode {
			at := start + req.ReplacementOffset
			if err := reconcileInsert(work, at, block, req.TargetName, m.Start); err != nil {
				return nil, err
			}
			work = slices.Insert(work, at, block...)
			pos, delta = at, len(block)
		} else {
			if err := reconcileOverwrite(work, start, m.Length, block, req.TargetName, m.Start); err != nil {
				return nil, err
			}
			work = slices.Replace(work, start, start+m.Length, block...)
			pos, delta = start, len(block)-m.Length
		}

		tr.record(m.Start, delta)
		out.originalPositions = append(out.originalPositions, m.Start)
		out.positions = append(out.positions, pos)
	}

	out.instructions = work
	out.lengthDelta = tr.netDelta()
	return out, nil
}
