package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for hashing.
// This is the ONLY serialization used for identity computation.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized, so visually identical member names hash the same
//  4. Only strings, integers, bools, slices, maps and ir types are accepted
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case int:
		fmt.Fprintf(buf, "%d", val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case Instruction:
		return writeCanonical(buf, instructionTree(val))
	case Sequence:
		return writeCanonical(buf, sequenceTree(val))
	case PatternElement:
		return writeCanonical(buf, patternTree(val))
	case PatchDef:
		return writeCanonical(buf, patchDefTree(val))
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes an NFC-normalized JSON string without HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// compareUTF16 orders strings by UTF-16 code units (RFC 8785).
// Go's native string comparison orders by UTF-8 bytes, which differs above U+FFFF.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

func instructionTree(inst Instruction) map[string]any {
	labels := make([]any, len(inst.Labels))
	for i, id := range inst.Labels {
		labels[i] = string(id)
	}
	return map[string]any{
		"opcode":  string(inst.Opcode),
		"operand": FormatOperand(inst.Operand),
		"labels":  labels,
	}
}

func sequenceTree(seq Sequence) []any {
	out := make([]any, len(seq))
	for i, inst := range seq {
		out[i] = instructionTree(inst)
	}
	return out
}

func patternTree(p PatternElement) map[string]any {
	return map[string]any{
		"opcode":  string(p.Opcode),
		"operand": FormatOperand(p.Operand),
	}
}

func patchDefTree(def PatchDef) map[string]any {
	pattern := make([]any, len(def.Pattern))
	for i, p := range def.Pattern {
		pattern[i] = patternTree(p)
	}
	return map[string]any{
		"target":                def.Target,
		"mode":                  string(def.Mode),
		"replacement_offset":    def.ReplacementOffset,
		"max_patches":           def.MaxPatches,
		"minimum_safety_offset": def.MinimumSafetyOffset,
		"pattern":               pattern,
		"replacement":           sequenceTree(def.Replacement),
	}
}
