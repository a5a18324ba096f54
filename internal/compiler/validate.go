package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/ilpatch/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation
	ErrDuplicateName     = "E105" // duplicate patch name

	// PatchDef errors (E120-E129)
	ErrPatchTargetEmpty     = "E120" // target is required
	ErrInvalidPatchMode     = "E121" // mode must be insert or overwrite
	ErrEmptyPattern         = "E122" // pattern must have at least one element
	ErrEmptyInsertBlock     = "E123" // insert mode needs a replacement
	ErrOffsetOutOfRange     = "E124" // offset outside [0, len(pattern)]
	ErrNegativeLimit        = "E125" // max_patches / min_safety_offset < 0
	ErrInvalidOperand       = "E126" // unresolved operand
	ErrReplacementLabels    = "E127" // replacement labels need max_patches == 1
	ErrWildcardReplacement  = "E128" // replacement opcode must be concrete
	ErrPatternOpcodeMissing = "E129" // pattern element without opcode
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled patch definitions against schema rules.
// Returns all errors found (does not fail-fast).
// Supports PatchDef and []PatchDef; the slice form also checks for
// duplicate names.
//
// Branch targets are not checked here: they may refer to labels in a method
// body that is only known when the patch is applied.
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *ir.PatchDef:
		return validatePatchDef(def, "")
	case ir.PatchDef:
		return validatePatchDef(&def, "")
	case []ir.PatchDef:
		return validatePatchSet(def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validatePatchSet(defs []ir.PatchDef) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)

	for i := range defs {
		prefix := fmt.Sprintf("patches[%d].", i)

		// E105: duplicate patch name
		if names[defs[i].Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + "name",
				Message: fmt.Sprintf("duplicate patch name: %q", defs[i].Name),
				Code:    ErrDuplicateName,
			})
		}
		names[defs[i].Name] = true

		errs = append(errs, validatePatchDef(&defs[i], prefix)...)
	}
	return errs
}

// validatePatchDef validates one definition. prefix scopes field names.
func validatePatchDef(def *ir.PatchDef, prefix string) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   prefix + field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	// E120: target is required
	if strings.TrimSpace(def.Target) == "" {
		add("target", ErrPatchTargetEmpty, "target is required and must be non-empty")
	}

	// E121: mode
	if !ir.ValidPatchModes[def.Mode] {
		add("mode", ErrInvalidPatchMode, "invalid mode %q, must be \"insert\" or \"overwrite\"", def.Mode)
	}

	// E122 / E129: pattern
	if len(def.Pattern) == 0 {
		add("pattern", ErrEmptyPattern, "pattern must have at least one element")
	}
	for i, p := range def.Pattern {
		if p.Opcode == "" {
			add(fmt.Sprintf("pattern[%d]", i), ErrPatternOpcodeMissing, "opcode is required")
		}
		if err := ir.ValidateOperand(p.Operand); err != nil {
			add(fmt.Sprintf("pattern[%d].operand", i), ErrInvalidOperand, "%v", err)
		}
	}

	// E125: limits
	if def.MaxPatches < 0 {
		add("max_patches", ErrNegativeLimit, "max_patches must be >= 0, got %d", def.MaxPatches)
	}
	if def.MinimumSafetyOffset < 0 {
		add("min_safety_offset", ErrNegativeLimit, "min_safety_offset must be >= 0, got %d", def.MinimumSafetyOffset)
	}

	// E123 / E124: insert-mode rules
	if def.Mode == ir.ModeInsert {
		if len(def.Replacement) == 0 {
			add("replacement", ErrEmptyInsertBlock, "insert mode requires at least one replacement instruction")
		}
		if def.ReplacementOffset < 0 || def.ReplacementOffset > len(def.Pattern) {
			add("offset", ErrOffsetOutOfRange, "offset %d outside [0, %d]", def.ReplacementOffset, len(def.Pattern))
		}
	}

	// E126 / E127 / E128: replacement
	hasLabels := false
	seen := make(map[ir.LabelID]bool)
	for i, inst := range def.Replacement {
		field := fmt.Sprintf("replacement[%d]", i)
		if inst.Opcode == "" || inst.Opcode == ir.AnyOpcode {
			add(field, ErrWildcardReplacement, "replacement opcode must be concrete, got %q", inst.Opcode)
		}
		if err := ir.ValidateOperand(inst.Operand); err != nil {
			add(field+".operand", ErrInvalidOperand, "%v", err)
		}
		for _, id := range inst.Labels {
			hasLabels = true
			if seen[id] {
				add(field+".labels", ErrReplacementLabels, "label %q defined twice", id)
			}
			seen[id] = true
		}
	}
	if hasLabels && def.MaxPatches != 1 {
		add("max_patches", ErrReplacementLabels,
			"replacement defines labels, so max_patches must be 1 (got %d)", def.MaxPatches)
	}

	return errs
}
