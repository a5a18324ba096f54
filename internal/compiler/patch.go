package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/ilpatch/internal/ir"
	"github.com/roach88/ilpatch/internal/listing"
)

// CompilePatch parses a CUE value into a PatchDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the patch struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`patch: hook_tick: { ... }`)
//	def, err := CompilePatch(v.LookupPath(cue.ParsePath("patch.hook_tick")))
//
// Pattern and replacement accept three shapes:
//   - a multi-line listing string
//   - a list of single-line listing strings
//   - a list of {op, operand?, labels?} structs (mixed with strings)
func CompilePatch(v cue.Value) (*ir.PatchDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.PatchDef{}

	// Patch name from struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	if err := compilePatchFields(v, def); err != nil {
		return nil, withPatch(err, def.Name)
	}
	return def, nil
}

func compilePatchFields(v cue.Value, def *ir.PatchDef) error {
	target, err := requiredString(v, "target")
	if err != nil {
		return err
	}
	def.Target = target

	mode, err := requiredString(v, "mode")
	if err != nil {
		return err
	}
	if !ir.ValidPatchModes[ir.PatchMode(mode)] {
		return &CompileError{
			Field:   "mode",
			Message: fmt.Sprintf("invalid mode %q, must be \"insert\" or \"overwrite\"", mode),
			Pos:     v.LookupPath(cue.ParsePath("mode")).Pos(),
		}
	}
	def.Mode = ir.PatchMode(mode)

	if def.ReplacementOffset, err = optionalInt(v, "offset"); err != nil {
		return err
	}
	if def.MaxPatches, err = optionalInt(v, "max_patches"); err != nil {
		return err
	}
	if def.MinimumSafetyOffset, err = optionalInt(v, "min_safety_offset"); err != nil {
		return err
	}

	logVal := v.LookupPath(cue.ParsePath("extra_logging"))
	if logVal.Exists() {
		b, err := logVal.Bool()
		if err != nil {
			return formatCUEError(err)
		}
		def.ExtraLogging = b
	}

	// Parse pattern (required)
	patternVal := v.LookupPath(cue.ParsePath("pattern"))
	if !patternVal.Exists() {
		return &CompileError{
			Field:   "pattern",
			Message: "pattern is required",
			Pos:     v.Pos(),
		}
	}
	def.Pattern, err = parsePattern(patternVal)
	if err != nil {
		return err
	}

	// Parse replacement (optional: an empty overwrite deletes the window)
	replVal := v.LookupPath(cue.ParsePath("replacement"))
	if replVal.Exists() {
		def.Replacement, err = parseReplacement(replVal)
		if err != nil {
			return err
		}
	}

	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// optionalInt reads an integer field, defaulting to 0.
// Floats are rejected: positions and counts are whole numbers.
func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	switch fv.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   field,
			Message: "float values are forbidden, use int instead",
			Pos:     fv.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be an int, got %v", fv.IncompleteKind()),
			Pos:     fv.Pos(),
		}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// parsePattern accepts a listing string or a list of elements.
func parsePattern(v cue.Value) ([]ir.PatternElement, error) {
	if src, err := v.String(); err == nil {
		pattern, err := listing.ParsePattern(src)
		if err != nil {
			return nil, &CompileError{Field: "pattern", Message: err.Error(), Pos: v.Pos()}
		}
		return pattern, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "pattern",
			Message: "must be a listing string or a list of elements",
			Pos:     v.Pos(),
		}
	}

	var pattern []ir.PatternElement
	for i := 0; iter.Next(); i++ {
		inst, err := parseElement(iter.Value(), fmt.Sprintf("pattern[%d]", i), false)
		if err != nil {
			return nil, err
		}
		pattern = append(pattern, ir.PatternElement{Opcode: inst.Opcode, Operand: inst.Operand})
	}
	return pattern, nil
}

// parseReplacement accepts a listing string or a list of elements.
func parseReplacement(v cue.Value) (ir.Sequence, error) {
	if src, err := v.String(); err == nil {
		seq, err := listing.Parse(src)
		if err != nil {
			return nil, &CompileError{Field: "replacement", Message: err.Error(), Pos: v.Pos()}
		}
		return seq, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "replacement",
			Message: "must be a listing string or a list of elements",
			Pos:     v.Pos(),
		}
	}

	var seq ir.Sequence
	for i := 0; iter.Next(); i++ {
		inst, err := parseElement(iter.Value(), fmt.Sprintf("replacement[%d]", i), true)
		if err != nil {
			return nil, err
		}
		seq = append(seq, inst)
	}
	return seq, nil
}

// parseElement parses one pattern or replacement element.
// Supports a single listing line or a structured {op, operand, labels} object.
func parseElement(v cue.Value, field string, allowLabels bool) (ir.Instruction, error) {
	// Try as listing line first
	if line, err := v.String(); err == nil {
		if allowLabels {
			seq, err := listing.Parse(line)
			if err != nil {
				return ir.Instruction{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
			}
			if len(seq) != 1 {
				return ir.Instruction{}, &CompileError{Field: field, Message: "must hold exactly one instruction", Pos: v.Pos()}
			}
			return seq[0], nil
		}
		pattern, err := listing.ParsePattern(line)
		if err != nil {
			return ir.Instruction{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		if len(pattern) != 1 {
			return ir.Instruction{}, &CompileError{Field: field, Message: "must hold exactly one element", Pos: v.Pos()}
		}
		return ir.Instruction{Opcode: pattern[0].Opcode, Operand: pattern[0].Operand}, nil
	}

	// Structured object
	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return ir.Instruction{}, &CompileError{
			Field:   field,
			Message: "must be a listing line or an object with an op field",
			Pos:     v.Pos(),
		}
	}
	op, err := opVal.String()
	if err != nil {
		return ir.Instruction{}, formatCUEError(err)
	}
	inst := ir.Instruction{Opcode: ir.Opcode(op)}

	operandVal := v.LookupPath(cue.ParsePath("operand"))
	if operandVal.Exists() {
		text, err := operandVal.String()
		if err != nil {
			return inst, formatCUEError(err)
		}
		inst.Operand, err = listing.ParseOperand(text)
		if err != nil {
			return inst, &CompileError{Field: field + ".operand", Message: err.Error(), Pos: operandVal.Pos()}
		}
	}

	labelsVal := v.LookupPath(cue.ParsePath("labels"))
	if labelsVal.Exists() {
		if !allowLabels {
			return inst, &CompileError{
				Field:   field + ".labels",
				Message: "labels are not allowed in patterns",
				Pos:     labelsVal.Pos(),
			}
		}
		iter, err := labelsVal.List()
		if err != nil {
			return inst, formatCUEError(err)
		}
		for iter.Next() {
			id, err := iter.Value().String()
			if err != nil {
				return inst, formatCUEError(err)
			}
			inst.Labels = inst.Labels.Union(ir.LabelSet{ir.LabelID(id)})
		}
	}

	return inst, nil
}
