package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ilpatch/internal/engine"
	"github.com/roach88/ilpatch/internal/ir"
	"github.com/roach88/ilpatch/internal/listing"
)

func mustListing(t *testing.T, src string) ir.Sequence {
	t.Helper()
	seq, err := listing.Parse(src)
	require.NoError(t, err)
	return seq
}

func testContext(t *testing.T, mode ir.PatchMode, body string) *AssertionContext {
	t.Helper()
	return &AssertionContext{
		Def: ir.PatchDef{
			Target:      "T::M",
			Mode:        mode,
			Pattern:     []ir.PatternElement{ir.Pat("b", nil)},
			Replacement: mustListing(t, "x\ny"),
		},
		Body:    mustListing(t, body),
		Patcher: engine.NewPatcher(engine.WithLogger(discardLogger())),
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertPositions,
		Expected: "positions [1]",
		Actual:   "positions [2]",
		Listing:  ir.Sequence{ir.Inst("nop", nil)},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: positions")
	assert.Contains(t, msg, "Expected: positions [1]")
	assert.Contains(t, msg, "Actual: positions [2]")
	assert.Contains(t, msg, "[0] nop")
}

func TestAssertPatched(t *testing.T) {
	assert.NoError(t, assertPatched(&Result{IsPatched: true}))

	err := assertPatched(&Result{FailureCode: "PATTERN_NOT_FOUND"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not patched (PATTERN_NOT_FOUND)")
}

func TestAssertNotPatched(t *testing.T) {
	failed := &Result{FailureCode: "LABEL_RECONCILIATION_FAILED"}

	assert.NoError(t, assertNotPatched(failed, Assertion{}))
	assert.NoError(t, assertNotPatched(failed, Assertion{Code: "LABEL_RECONCILIATION_FAILED"}))
	assert.Error(t, assertNotPatched(failed, Assertion{Code: "PATTERN_NOT_FOUND"}))
	assert.Error(t, assertNotPatched(&Result{IsPatched: true}, Assertion{}))
}

func TestAssertLengthLaw(t *testing.T) {
	tests := []struct {
		name    string
		mode    ir.PatchMode
		result  *Result
		wantErr bool
	}{
		{
			name:   "insert one edit",
			mode:   ir.ModeInsert,
			result: &Result{IsPatched: true, OriginalPositions: []int{1}},
		},
		{
			name:   "overwrite one edit",
			mode:   ir.ModeOverwrite,
			result: &Result{IsPatched: true, OriginalPositions: []int{1}},
		},
		{
			name:    "insert with wrong length",
			mode:    ir.ModeInsert,
			result:  &Result{IsPatched: true, OriginalPositions: []int{1, 2}},
			wantErr: true,
		},
		{
			name:   "unpatched keeps body",
			mode:   ir.ModeInsert,
			result: &Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actx := testContext(t, tt.mode, "a\nb\nc")
			switch {
			case !tt.result.IsPatched:
				tt.result.Instructions = actx.Body.Clone()
			case tt.mode == ir.ModeInsert:
				tt.result.Instructions = mustListing(t, "a\nb\nx\ny\nc")
			default:
				tt.result.Instructions = mustListing(t, "a\nx\ny\nc")
			}

			err := assertLengthLaw(tt.result, actx)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertLengthLaw_UnpatchedMustEqualBody(t *testing.T) {
	actx := testContext(t, ir.ModeInsert, "a\nb\nc")
	err := assertLengthLaw(&Result{Instructions: mustListing(t, "a\nb\nd")}, actx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "original body unchanged")
}

func TestAssertLabelsConserved(t *testing.T) {
	actx := testContext(t, ir.ModeInsert, "L1: a\nL2: b\nc")

	ok := &Result{Instructions: mustListing(t, "L1: a\nL2: x\ny\nb\nc")}
	assert.NoError(t, assertLabelsConserved(ok, actx))

	lost := &Result{Instructions: mustListing(t, "L1: a\nx\ny\nb\nc")}
	err := assertLabelsConserved(lost, actx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L2 appears 0 times")

	dup := &Result{Instructions: mustListing(t, "L1: a\nL2: x\nL2: b\nc")}
	err = assertLabelsConserved(dup, actx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "L2 appears 2 times")
}

func TestAssertPositions(t *testing.T) {
	result := &Result{OriginalPositions: []int{1, 3}, Positions: []int{1, 4}}

	assert.NoError(t, assertPositions(result, Assertion{Original: []int{1, 3}, Final: []int{1, 4}}))
	assert.NoError(t, assertPositions(result, Assertion{Final: []int{1, 4}}))
	assert.Error(t, assertPositions(result, Assertion{Original: []int{1}}))
	assert.Error(t, assertPositions(result, Assertion{Final: []int{1, 3}}))

	empty := &Result{OriginalPositions: []int{}, Positions: []int{}}
	assert.NoError(t, assertPositions(empty, Assertion{Original: []int{}, Final: []int{}}))
}

func TestAssertReapplyInsertsAgain(t *testing.T) {
	actx := testContext(t, ir.ModeInsert, "a\nb\nc")
	result := &Result{
		IsPatched:         true,
		OriginalPositions: []int{1},
		Instructions:      mustListing(t, "a\nx\ny\nb\nc"),
	}
	assert.NoError(t, assertReapplyInsertsAgain(result, actx))

	err := assertReapplyInsertsAgain(&Result{FailureCode: "PATTERN_NOT_FOUND"}, actx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a patched first application")

	gone := &Result{IsPatched: true, Instructions: mustListing(t, "a\nc")}
	err = assertReapplyInsertsAgain(gone, actx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second application patched")
}

func TestAssertSafetyOffset(t *testing.T) {
	actx := testContext(t, ir.ModeInsert, "b\nb\nb")
	actx.Def.MinimumSafetyOffset = 2

	assert.NoError(t, assertSafetyOffset(&Result{OriginalPositions: []int{2}, Skipped: []int{0, 1}}, actx))
	assert.Error(t, assertSafetyOffset(&Result{OriginalPositions: []int{1}}, actx))
	assert.Error(t, assertSafetyOffset(&Result{Skipped: []int{2}}, actx))
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(&Result{}, []Assertion{{Type: "bogus"}}, testContext(t, ir.ModeInsert, "a"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "bogus"`)
}
