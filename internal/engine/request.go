package engine

import (
	"github.com/roach88/ilpatch/internal/ir"
)

// Request is the immutable input to one ApplyPatches call.
//
// Build it with NewRequest, which validates eagerly so malformed requests
// never reach the matcher. A Request is consumed by exactly one call.
type Request struct {
	// OriginalInstructions is the method body. Owned by the caller and never
	// mutated by the engine.
	OriginalInstructions ir.Sequence

	// SearchPattern is the ordered predicate list locating each match window.
	SearchPattern []ir.PatternElement

	// ReplacementInstructions is spliced in at each accepted match.
	ReplacementInstructions ir.Sequence

	// TargetName labels diagnostics only.
	TargetName string

	// ReplacementOffset shifts the insertion point in insert mode:
	// 0 inserts before the match, len(SearchPattern) right after it.
	ReplacementOffset int

	// IsInsertMode keeps the matched window; otherwise it is overwritten.
	IsInsertMode bool

	// MaxPatches caps accepted matches; 0 means unlimited.
	MaxPatches int

	// MinimumSafetyOffset is the smallest original index a match may start at.
	MinimumSafetyOffset int

	// ExtraLogging dumps the generated listing after a successful patch.
	ExtraLogging bool

	// OperandEqual compares pattern operands against instruction operands.
	// Defaults to ir.OperandsEqual.
	OperandEqual ir.OperandComparator
}

// Option configures a Request.
type Option func(*Request)

// InsertMode splices the replacement next to each match instead of over it.
func InsertMode() Option {
	return func(r *Request) { r.IsInsertMode = true }
}

// WithReplacementOffset sets the insert-mode offset from the match start.
func WithReplacementOffset(offset int) Option {
	return func(r *Request) { r.ReplacementOffset = offset }
}

// WithMaxPatches caps the number of accepted matches (0 = unlimited).
func WithMaxPatches(n int) Option {
	return func(r *Request) { r.MaxPatches = n }
}

// WithMinimumSafetyOffset rejects matches starting before index n.
func WithMinimumSafetyOffset(n int) Option {
	return func(r *Request) { r.MinimumSafetyOffset = n }
}

// WithExtraLogging enables the generated-patch listing dump.
func WithExtraLogging() Option {
	return func(r *Request) { r.ExtraLogging = true }
}

// WithOperandComparator overrides operand equality for matching.
func WithOperandComparator(eq ir.OperandComparator) Option {
	return func(r *Request) { r.OperandEqual = eq }
}

// NewRequest builds and validates a request. Pattern and replacement are
// copied; the original sequence is referenced, never written.
//
// Returns a *PatchError with ErrCodeMalformedRequest when the request cannot
// be applied safely under any input.
func NewRequest(target string, original ir.Sequence, pattern []ir.PatternElement, replacement ir.Sequence, opts ...Option) (*Request, error) {
	req := &Request{
		OriginalInstructions:    original,
		SearchPattern:           append([]ir.PatternElement(nil), pattern...),
		ReplacementInstructions: replacement.Clone(),
		TargetName:              target,
	}
	for _, opt := range opts {
		opt(req)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// FromPatchDef builds a request from a compiled definition and a method body.
func FromPatchDef(def ir.PatchDef, body ir.Sequence, opts ...Option) (*Request, error) {
	base := []Option{
		WithReplacementOffset(def.ReplacementOffset),
		WithMaxPatches(def.MaxPatches),
		WithMinimumSafetyOffset(def.MinimumSafetyOffset),
	}
	if def.Mode == ir.ModeInsert {
		base = append(base, InsertMode())
	}
	if def.ExtraLogging {
		base = append(base, WithExtraLogging())
	}
	return NewRequest(def.Target, body, def.Pattern, def.Replacement, append(base, opts...)...)
}

// Validate checks the request for construction-time errors.
func (r *Request) Validate() error {
	target := r.TargetName

	if target == "" {
		return newMalformedError(target, "target name is required")
	}
	if len(r.SearchPattern) == 0 {
		return newMalformedError(target, "search pattern is empty")
	}
	for i, p := range r.SearchPattern {
		if p.Opcode == "" {
			return newMalformedError(target, "pattern[%d]: opcode is required", i)
		}
		if err := ir.ValidateOperand(p.Operand); err != nil {
			return newMalformedError(target, "pattern[%d]: %v", i, err)
		}
	}

	if r.MaxPatches < 0 {
		return newMalformedError(target, "max patches must be >= 0, got %d", r.MaxPatches)
	}
	if r.MinimumSafetyOffset < 0 {
		return newMalformedError(target, "minimum safety offset must be >= 0, got %d", r.MinimumSafetyOffset)
	}

	if r.IsInsertMode {
		if len(r.ReplacementInstructions) == 0 {
			return newMalformedError(target, "insert mode requires at least one replacement instruction")
		}
		if r.ReplacementOffset < 0 || r.ReplacementOffset > len(r.SearchPattern) {
			return newMalformedError(target, "replacement offset %d outside [0, %d]",
				r.ReplacementOffset, len(r.SearchPattern))
		}
	}

	return r.validateReplacement()
}

// validateReplacement rejects unresolved operands and label definitions that
// would break label conservation.
func (r *Request) validateReplacement() error {
	target := r.TargetName
	original := r.OriginalInstructions.LabelCounts()
	defined := make(map[ir.LabelID]bool)

	for i, inst := range r.ReplacementInstructions {
		if inst.Opcode == "" || inst.Opcode == ir.AnyOpcode {
			return newMalformedError(target, "replacement[%d]: concrete opcode is required", i)
		}
		if err := ir.ValidateOperand(inst.Operand); err != nil {
			return newMalformedError(target, "replacement[%d]: %v", i, err)
		}
		for _, id := range inst.Labels {
			if defined[id] {
				return newMalformedError(target, "replacement[%d]: label %q defined twice", i, id)
			}
			if original[id] > 0 {
				return newMalformedError(target, "replacement[%d]: label %q already exists in the original body", i, id)
			}
			defined[id] = true
		}
	}

	if len(defined) > 0 && r.MaxPatches != 1 {
		return newMalformedError(target, "replacement defines labels, so max patches must be 1 (got %d)", r.MaxPatches)
	}

	for i, inst := range r.ReplacementInstructions {
		bt, ok := inst.Operand.(ir.BranchTarget)
		if !ok {
			continue
		}
		id := ir.LabelID(bt)
		if !defined[id] && original[id] == 0 {
			return newMalformedError(target, "replacement[%d]: branch target %q is unresolved", i, id)
		}
	}

	return nil
}

func (r *Request) operandComparator() ir.OperandComparator {
	if r.OperandEqual != nil {
		return r.OperandEqual
	}
	return ir.OperandsEqual
}
