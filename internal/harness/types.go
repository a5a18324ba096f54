package harness

import "github.com/roach88/ilpatch/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// IsPatched mirrors the engine result.
	IsPatched bool `json:"is_patched"`

	// FailureCode is the engine failure code, empty when patched.
	FailureCode string `json:"failure_code,omitempty"`

	// OriginalPositions and Positions mirror the engine result.
	OriginalPositions []int `json:"original_positions"`
	Positions         []int `json:"positions"`

	// Skipped lists candidates rejected by min_safety_offset.
	Skipped []int `json:"skipped,omitempty"`

	// Instructions is the sequence a caller would install.
	Instructions ir.Sequence `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:              true,
		OriginalPositions: []int{},
		Positions:         []int{},
		Errors:            []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
