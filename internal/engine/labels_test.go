package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ilpatch/internal/ir"
)

func TestReconcileInsert(t *testing.T) {
	work := ir.Sequence{ir.Inst("A", nil), ir.Inst("B", nil).WithLabels("L1", "L2")}
	block := ir.Sequence{ir.Inst("X", nil).WithLabels("OWN"), ir.Inst("Y", nil)}

	require.NoError(t, reconcileInsert(work, 1, block, "T", 1))

	assert.Equal(t, ir.LabelSet{"OWN", "L1", "L2"}, block[0].Labels)
	assert.Empty(t, block[1].Labels)
	assert.Empty(t, work[1].Labels)

	t.Run("past the end moves nothing", func(t *testing.T) {
		block := ops("X")
		require.NoError(t, reconcileInsert(work, len(work), block, "T", 2))
		assert.Empty(t, block[0].Labels)
	})

	t.Run("block branching to a moved label fails", func(t *testing.T) {
		work := ir.Sequence{ir.Inst("A", nil), ir.Inst("C", nil).WithLabels("L")}
		block := ir.Sequence{ir.Inst("brtrue", ir.BranchTarget("L")), ir.Inst("X", nil)}

		err := reconcileInsert(work, 1, block, "T", 1)
		require.Error(t, err)
		assert.True(t, IsLabelError(err))
		assert.Equal(t, ir.LabelSet{"L"}, work[1].Labels, "work untouched on failure")
		assert.Empty(t, block[0].Labels)
	})

	t.Run("branch to another label is kept", func(t *testing.T) {
		work := ir.Sequence{ir.Inst("A", nil).WithLabels("TOP"), ir.Inst("C", nil).WithLabels("L")}
		block := ir.Sequence{ir.Inst("br", ir.BranchTarget("TOP"))}

		require.NoError(t, reconcileInsert(work, 1, block, "T", 1))
		assert.Equal(t, ir.LabelSet{"L"}, block[0].Labels)
	})
}

func TestReconcileOverwrite(t *testing.T) {
	t.Run("head label moves to block", func(t *testing.T) {
		work := ir.Sequence{ir.Inst("A", nil).WithLabels("L"), ir.Inst("B", nil)}
		block := ops("X")

		require.NoError(t, reconcileOverwrite(work, 0, 1, block, "T", 0))
		assert.Equal(t, ir.LabelSet{"L"}, block[0].Labels)
	})

	t.Run("head label moves to survivor on deletion", func(t *testing.T) {
		work := ir.Sequence{ir.Inst("A", nil).WithLabels("L"), ir.Inst("B", nil).WithLabels("M")}

		require.NoError(t, reconcileOverwrite(work, 0, 1, nil, "T", 0))
		assert.Equal(t, ir.LabelSet{"M", "L"}, work[1].Labels)
	})

	t.Run("no survivor fails", func(t *testing.T) {
		work := ir.Sequence{ir.Inst("A", nil), ir.Inst("B", nil).WithLabels("L")}

		err := reconcileOverwrite(work, 1, 1, nil, "T", 1)
		require.Error(t, err)
		assert.True(t, IsLabelError(err))
		assert.Equal(t, ir.LabelSet{"L"}, work[1].Labels, "nothing moves on failure")
	})

	t.Run("interior label fails", func(t *testing.T) {
		work := ir.Sequence{ir.Inst("A", nil), ir.Inst("B", nil).WithLabels("L"), ir.Inst("C", nil)}
		block := ops("X")

		err := reconcileOverwrite(work, 0, 2, block, "T", 4)
		require.Error(t, err)
		assert.True(t, IsLabelError(err))

		var pe *PatchError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "4", pe.Details["original_position"])
		assert.Empty(t, block[0].Labels)
	})

	t.Run("unlabeled window is a no-op", func(t *testing.T) {
		work := ops("A", "B")
		block := ops("X")
		require.NoError(t, reconcileOverwrite(work, 0, 2, block, "T", 0))
		assert.Empty(t, block[0].Labels)
	})
}
