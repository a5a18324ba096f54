package ir

import (
	"encoding/json"
	"slices"
	"strings"
)

// Opcode is an opaque operation identity. The engine compares opcodes by
// equality only.
type Opcode string

// AnyOpcode in a PatternElement matches every opcode.
const AnyOpcode Opcode = "*"

// LabelID identifies a jump target.
type LabelID string

// LabelSet is the ordered, duplicate-free set of labels resolving to one
// instruction. The zero value is the empty set.
type LabelSet []LabelID

// NewLabelSet builds a set from ids, dropping duplicates and keeping first-seen order.
func NewLabelSet(ids ...LabelID) LabelSet {
	var s LabelSet
	for _, id := range ids {
		if !s.Contains(id) {
			s = append(s, id)
		}
	}
	return s
}

// Contains reports whether id is in the set.
func (s LabelSet) Contains(id LabelID) bool {
	return slices.Contains(s, id)
}

// Union returns a new set with the labels of s followed by those of o not already in s.
func (s LabelSet) Union(o LabelSet) LabelSet {
	out := s.Clone()
	for _, id := range o {
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns an independent copy (nil for the empty set).
func (s LabelSet) Clone() LabelSet {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// Equal reports whether both sets hold the same labels, ignoring order.
func (s LabelSet) Equal(o LabelSet) bool {
	if len(s) != len(o) {
		return false
	}
	for _, id := range s {
		if !o.Contains(id) {
			return false
		}
	}
	return true
}

// Instruction is one token of a method body.
type Instruction struct {
	Opcode  Opcode
	Operand Operand  // nil when the opcode takes no operand
	Labels  LabelSet // jump targets currently resolving here
}

// Inst builds an instruction without labels.
func Inst(op Opcode, operand Operand) Instruction {
	return Instruction{Opcode: op, Operand: operand}
}

// WithLabels returns a copy of the instruction carrying the given labels in
// addition to its own.
func (i Instruction) WithLabels(ids ...LabelID) Instruction {
	c := i.Clone()
	c.Labels = c.Labels.Union(NewLabelSet(ids...))
	return c
}

// HasLabels reports whether any jump resolves to this instruction.
func (i Instruction) HasLabels() bool {
	return len(i.Labels) > 0
}

// Clone returns a copy that shares no mutable state with i.
func (i Instruction) Clone() Instruction {
	return Instruction{Opcode: i.Opcode, Operand: i.Operand, Labels: i.Labels.Clone()}
}

// Equal compares opcode, operand (via eq, or OperandsEqual when nil) and labels.
func (i Instruction) Equal(o Instruction, eq OperandComparator) bool {
	if eq == nil {
		eq = OperandsEqual
	}
	return i.Opcode == o.Opcode && eq(i.Operand, o.Operand) && i.Labels.Equal(o.Labels)
}

// String renders the instruction in listing syntax: "L1, L2: opcode operand".
func (i Instruction) String() string {
	var b strings.Builder
	for n, id := range i.Labels {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(id))
	}
	if len(i.Labels) > 0 {
		b.WriteString(": ")
	}
	b.WriteString(string(i.Opcode))
	if i.Operand != nil {
		b.WriteByte(' ')
		b.WriteString(i.Operand.String())
	}
	return b.String()
}

// MarshalJSON encodes the instruction with its operand in listing syntax.
func (i Instruction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Opcode  Opcode    `json:"opcode"`
		Operand string    `json:"operand,omitempty"`
		Labels  []LabelID `json:"labels,omitempty"`
	}{i.Opcode, FormatOperand(i.Operand), i.Labels})
}

// Sequence is an ordered list of instructions. Order encodes control flow.
type Sequence []Instruction

// Clone returns a deep copy. Operands are immutable values and are shared.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	for i, inst := range s {
		out[i] = inst.Clone()
	}
	return out
}

// Equal compares two sequences element-for-element.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i], nil) {
			return false
		}
	}
	return true
}

// LabelCounts returns the multiset of labels attached across the sequence.
func (s Sequence) LabelCounts() map[LabelID]int {
	counts := make(map[LabelID]int)
	for _, inst := range s {
		for _, id := range inst.Labels {
			counts[id]++
		}
	}
	return counts
}

// LabelIndex returns the index of the instruction carrying id, or -1.
func (s Sequence) LabelIndex(id LabelID) int {
	for i, inst := range s {
		if inst.Labels.Contains(id) {
			return i
		}
	}
	return -1
}

// String renders the sequence one instruction per line.
func (s Sequence) String() string {
	lines := make([]string, len(s))
	for i, inst := range s {
		lines[i] = inst.String()
	}
	return strings.Join(lines, "\n")
}

// PatternElement is a match-only predicate over (opcode, operand).
// AnyOpcode matches every opcode; a nil Operand matches every operand.
type PatternElement struct {
	Opcode  Opcode
	Operand Operand
}

// Pat builds a pattern element.
func Pat(op Opcode, operand Operand) PatternElement {
	return PatternElement{Opcode: op, Operand: operand}
}

// Matches tests the element against an instruction: opcode first, then the
// operand only when the element specifies one.
func (p PatternElement) Matches(inst Instruction, eq OperandComparator) bool {
	if p.Opcode != AnyOpcode && p.Opcode != inst.Opcode {
		return false
	}
	if p.Operand == nil {
		return true
	}
	if eq == nil {
		eq = OperandsEqual
	}
	return eq(p.Operand, inst.Operand)
}

func (p PatternElement) String() string {
	if p.Operand == nil {
		return string(p.Opcode)
	}
	return string(p.Opcode) + " " + p.Operand.String()
}

// MarshalJSON encodes the element with its operand in listing syntax.
func (p PatternElement) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Opcode  Opcode `json:"opcode"`
		Operand string `json:"operand,omitempty"`
	}{p.Opcode, FormatOperand(p.Operand)})
}

// Match is a located, contiguous window in the original sequence.
type Match struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// End returns the index one past the window.
func (m Match) End() int {
	return m.Start + m.Length
}

// PatchMode selects between splicing next to a match and replacing it.
type PatchMode string

const (
	ModeInsert    PatchMode = "insert"
	ModeOverwrite PatchMode = "overwrite"
)

// ValidPatchModes defines allowed patch modes.
var ValidPatchModes = map[PatchMode]bool{
	ModeInsert:    true,
	ModeOverwrite: true,
}

// PatchDef is a compiled, declarative patch definition: everything needed to
// build an engine request except the method body itself.
type PatchDef struct {
	Name                string           `json:"name"`
	Target              string           `json:"target"`
	Mode                PatchMode        `json:"mode"`
	ReplacementOffset   int              `json:"replacement_offset"`
	MaxPatches          int              `json:"max_patches"`
	MinimumSafetyOffset int              `json:"minimum_safety_offset"`
	ExtraLogging        bool             `json:"extra_logging,omitempty"`
	Pattern             []PatternElement `json:"pattern"`
	Replacement         Sequence         `json:"replacement"`
}
