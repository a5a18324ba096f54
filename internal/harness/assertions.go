package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ilpatch/internal/engine"
	"github.com/roach88/ilpatch/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Listing  ir.Sequence // Installed sequence for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Listing) > 0 {
		fmt.Fprintf(&buf, "\nListing:\n")
		for i, inst := range e.Listing {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, inst)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Def     ir.PatchDef
	Body    ir.Sequence
	Outcome *engine.Result // nil when the request was malformed
	Patcher *engine.Patcher
}

func assertPatched(result *Result) error {
	if result.IsPatched {
		return nil
	}
	return &AssertionError{
		Type:     AssertPatched,
		Expected: "patched",
		Actual:   fmt.Sprintf("not patched (%s)", result.FailureCode),
		Listing:  result.Instructions,
	}
}

func assertNotPatched(result *Result, assertion Assertion) error {
	if result.IsPatched {
		return &AssertionError{
			Type:     AssertNotPatched,
			Expected: "not patched",
			Actual:   fmt.Sprintf("patched at %v", result.Positions),
			Listing:  result.Instructions,
		}
	}
	if assertion.Code != "" && assertion.Code != result.FailureCode {
		return &AssertionError{
			Type:     AssertNotPatched,
			Expected: "failure " + assertion.Code,
			Actual:   "failure " + result.FailureCode,
		}
	}
	return nil
}

// assertLengthLaw checks the output length against the number of applied
// edits. An unpatched result must equal the original body.
func assertLengthLaw(result *Result, actx *AssertionContext) error {
	body, def := actx.Body, actx.Def

	if !result.IsPatched {
		if !result.Instructions.Equal(body) {
			return &AssertionError{
				Type:     AssertLengthLaw,
				Expected: "original body unchanged",
				Actual:   fmt.Sprintf("%d instructions differing from the original", len(result.Instructions)),
				Listing:  result.Instructions,
			}
		}
		return nil
	}

	n := len(result.OriginalPositions)
	want := len(body) + n*len(def.Replacement)
	if def.Mode == ir.ModeOverwrite {
		want = len(body) + n*(len(def.Replacement)-len(def.Pattern))
	}
	if got := len(result.Instructions); got != want {
		return &AssertionError{
			Type:     AssertLengthLaw,
			Expected: fmt.Sprintf("%d instructions (%d edits)", want, n),
			Actual:   fmt.Sprintf("%d instructions", got),
			Listing:  result.Instructions,
		}
	}
	return nil
}

// assertLabelsConserved checks that every label of the original body is
// carried by exactly one instruction of the output.
func assertLabelsConserved(result *Result, actx *AssertionContext) error {
	got := result.Instructions.LabelCounts()

	var problems []string
	for id := range actx.Body.LabelCounts() {
		if got[id] != 1 {
			problems = append(problems, fmt.Sprintf("%s appears %d times", id, got[id]))
		}
	}
	for id, n := range got {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("%s appears %d times", id, n))
		}
	}
	if len(problems) == 0 {
		return nil
	}

	slices.Sort(problems)
	problems = slices.Compact(problems)
	return &AssertionError{
		Type:     AssertLabelsConserved,
		Expected: "every label exactly once",
		Actual:   strings.Join(problems, ", "),
		Listing:  result.Instructions,
	}
}

func assertPositions(result *Result, assertion Assertion) error {
	if assertion.Original != nil && !slices.Equal(assertion.Original, result.OriginalPositions) {
		return &AssertionError{
			Type:     AssertPositions,
			Expected: fmt.Sprintf("original positions %v", assertion.Original),
			Actual:   fmt.Sprintf("original positions %v", result.OriginalPositions),
		}
	}
	if assertion.Final != nil && !slices.Equal(assertion.Final, result.Positions) {
		return &AssertionError{
			Type:     AssertPositions,
			Expected: fmt.Sprintf("positions %v", assertion.Final),
			Actual:   fmt.Sprintf("positions %v", result.Positions),
			Listing:  result.Instructions,
		}
	}
	return nil
}

// assertReapplyInsertsAgain feeds the output back through the same insert
// request. Insertion is not idempotent: the anchor is still there, so the
// block must go in again.
func assertReapplyInsertsAgain(result *Result, actx *AssertionContext) error {
	if !result.IsPatched {
		return &AssertionError{
			Type:     AssertReapplyInsertsAgain,
			Expected: "a patched first application",
			Actual:   fmt.Sprintf("not patched (%s)", result.FailureCode),
		}
	}

	req, err := engine.FromPatchDef(actx.Def, result.Instructions)
	if err != nil {
		return &AssertionError{
			Type:     AssertReapplyInsertsAgain,
			Expected: "a valid second request",
			Actual:   err.Error(),
		}
	}
	again, err := actx.Patcher.ApplyPatches(req)
	if err != nil {
		return fmt.Errorf("%s: %w", AssertReapplyInsertsAgain, err)
	}
	if !again.IsPatched {
		return &AssertionError{
			Type:     AssertReapplyInsertsAgain,
			Expected: "second application patched",
			Actual:   "not patched (" + string(again.Failure.Code) + ")",
			Listing:  result.Instructions,
		}
	}

	want := len(result.Instructions) + len(again.OriginalPositions)*len(actx.Def.Replacement)
	if got := len(again.NewInstructions); got != want {
		return &AssertionError{
			Type:     AssertReapplyInsertsAgain,
			Expected: fmt.Sprintf("%d instructions after second application", want),
			Actual:   fmt.Sprintf("%d instructions", got),
			Listing:  again.NewInstructions,
		}
	}
	return nil
}

// assertSafetyOffset checks that accepted matches start at or after
// min_safety_offset and that skipped candidates start before it.
func assertSafetyOffset(result *Result, actx *AssertionContext) error {
	limit := actx.Def.MinimumSafetyOffset
	for _, p := range result.OriginalPositions {
		if p < limit {
			return &AssertionError{
				Type:     AssertSafetyOffset,
				Expected: fmt.Sprintf("matches at or after %d", limit),
				Actual:   fmt.Sprintf("match at %d", p),
			}
		}
	}
	for _, p := range result.Skipped {
		if p >= limit {
			return &AssertionError{
				Type:     AssertSafetyOffset,
				Expected: fmt.Sprintf("skipped candidates before %d", limit),
				Actual:   fmt.Sprintf("skipped candidate at %d", p),
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPatched:
			err = assertPatched(result)
		case AssertNotPatched:
			err = assertNotPatched(result, assertion)
		case AssertLengthLaw:
			err = assertLengthLaw(result, actx)
		case AssertLabelsConserved:
			err = assertLabelsConserved(result, actx)
		case AssertPositions:
			err = assertPositions(result, assertion)
		case AssertReapplyInsertsAgain:
			err = assertReapplyInsertsAgain(result, actx)
		case AssertSafetyOffset:
			err = assertSafetyOffset(result, actx)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
