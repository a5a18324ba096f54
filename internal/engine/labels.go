package engine

import (
	"fmt"

	"github.com/roach88/ilpatch/internal/ir"
)

// reconcileInsert moves labels off the instruction at the insertion point
// onto the first instruction of the inserted block, so jumps that used to
// land there now run the inserted block first.
//
// A block that branches to one of those labels would then jump to itself
// instead of to the original instruction, so the edit fails.
//
// block is modified in place; it must be a fresh clone of the replacement.
// at may equal len(work) when inserting at the end, in which case nothing
// moves. On failure nothing is modified.
func reconcileInsert(work ir.Sequence, at int, block ir.Sequence, target string, origPos int) error {
	if at >= len(work) || !work[at].HasLabels() {
		return nil
	}
	for i, inst := range block {
		bt, ok := inst.Operand.(ir.BranchTarget)
		if ok && work[at].Labels.Contains(ir.LabelID(bt)) {
			return NewLabelError(target, origPos, fmt.Sprintf(
				"inserted instruction %d branches to label %q, which moves onto the inserted block",
				i, ir.LabelID(bt)))
		}
	}
	block[0].Labels = block[0].Labels.Union(work[at].Labels)
	work[at].Labels = nil
	return nil
}

// reconcileOverwrite finds a home for every label attached to the window
// work[start:start+length] before it is removed.
//
// Rules:
//   - Labels on the first window instruction move to block[0].
//   - With an empty block they move to the first survivor after the window.
//   - Labels on any other window instruction have no equivalent point in the
//     rewritten sequence and fail the edit.
//
// On success block (or the survivor in work) carries the moved labels.
// On failure nothing is modified.
func reconcileOverwrite(work ir.Sequence, start, length int, block ir.Sequence, target string, origPos int) error {
	for k := 1; k < length; k++ {
		if work[start+k].HasLabels() {
			return NewLabelError(target, origPos, fmt.Sprintf(
				"labels %v on instruction %d inside the overwritten window have no equivalent point",
				work[start+k].Labels, origPos+k))
		}
	}

	head := work[start]
	if !head.HasLabels() {
		return nil
	}

	if len(block) > 0 {
		block[0].Labels = block[0].Labels.Union(head.Labels)
		return nil
	}

	survivor := start + length
	if survivor >= len(work) {
		return NewLabelError(target, origPos, fmt.Sprintf(
			"labels %v would be removed with no surviving instruction after the window",
			head.Labels))
	}
	work[survivor].Labels = work[survivor].Labels.Union(head.Labels)
	return nil
}
