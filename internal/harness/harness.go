package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ilpatch/internal/engine"
	"github.com/roach88/ilpatch/internal/ir"
	"github.com/roach88/ilpatch/internal/listing"
)

// Harness runs scenarios against the patch engine.
type Harness struct {
	patcher *engine.Patcher
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes engine diagnostics to logger. Default: discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.patcher = engine.NewPatcher(engine.WithLogger(h.logger))
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Parse the body, pattern and replacement listings
// 2. Build the engine request
// 3. Apply it
// 4. Evaluate assertions against the outcome
//
// A malformed request is an outcome, not an error: it yields a Result with
// FailureCode MALFORMED_REQUEST so scenarios can assert on it. The error
// return is reserved for listings that do not parse.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	def, body, err := scenario.compile()
	if err != nil {
		return nil, err
	}

	result := NewResult()
	actx := &AssertionContext{
		Def:     def,
		Body:    body,
		Patcher: h.patcher,
	}

	req, err := engine.FromPatchDef(def, body)
	if err == nil {
		actx.Outcome, err = h.patcher.ApplyPatches(req)
	}
	if err != nil {
		var pe *engine.PatchError
		if !errors.As(err, &pe) {
			return nil, fmt.Errorf("failed to apply patch: %w", err)
		}
		h.logger.Error("malformed request", "target", def.Target, "error", pe.Message)
		result.FailureCode = string(pe.Code)
		result.Instructions = body.Clone()
	} else {
		out := actx.Outcome
		result.IsPatched = out.IsPatched
		result.OriginalPositions = out.OriginalPositions
		result.Positions = out.Positions
		result.Skipped = out.Skipped
		result.Instructions = out.BestInstructions(req)
		if out.Failure != nil {
			result.FailureCode = string(out.Failure.Code)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// compile turns the scenario's listings into a patch definition and body.
func (s *Scenario) compile() (ir.PatchDef, ir.Sequence, error) {
	body, err := listing.Parse(s.Body)
	if err != nil {
		return ir.PatchDef{}, nil, fmt.Errorf("body: %w", err)
	}

	pattern, err := listing.ParsePattern(s.Patch.Pattern)
	if err != nil {
		return ir.PatchDef{}, nil, fmt.Errorf("patch.pattern: %w", err)
	}

	replacement, err := listing.Parse(s.Patch.Replacement)
	if err != nil {
		return ir.PatchDef{}, nil, fmt.Errorf("patch.replacement: %w", err)
	}

	def := ir.PatchDef{
		Name:                s.Name,
		Target:              s.Target,
		Mode:                ir.PatchMode(s.Patch.Mode),
		ReplacementOffset:   s.Patch.Offset,
		MaxPatches:          s.Patch.MaxPatches,
		MinimumSafetyOffset: s.Patch.MinSafetyOffset,
		Pattern:             pattern,
		Replacement:         replacement,
	}
	return def, body, nil
}
