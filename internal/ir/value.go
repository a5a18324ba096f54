package ir

import (
	"fmt"
	"strconv"
)

// Operand is a sealed interface over pre-resolved instruction operands.
// Only IntOperand, StringOperand, MemberRef, TypeRef and BranchTarget
// implement it. A nil Operand means the instruction takes none.
//
// Every implementation is a comparable value type, so interface equality
// is structural equality.
type Operand interface {
	operand() // Sealed
	String() string
}

// IntOperand is an immediate integer (constants, local slots, argument indexes).
type IntOperand int64

func (IntOperand) operand() {}

func (i IntOperand) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// StringOperand is an immediate string literal.
type StringOperand string

func (StringOperand) operand() {}

func (s StringOperand) String() string {
	return strconv.Quote(string(s))
}

// OperandComparator reports whether two operands refer to the same thing.
// It must be total and consistent for the duration of one patch call.
type OperandComparator func(a, b Operand) bool

// OperandsEqual is the default comparator: structural equality.
// nil only equals nil.
func OperandsEqual(a, b Operand) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// FormatOperand renders an operand in listing syntax ("" for nil).
func FormatOperand(op Operand) string {
	if op == nil {
		return ""
	}
	return op.String()
}

// ValidateOperand checks that an operand is fully resolved.
// A nil operand is valid (no operand).
func ValidateOperand(op Operand) error {
	switch v := op.(type) {
	case nil, IntOperand, StringOperand:
		return nil
	case MemberRef:
		if !ValidMemberKinds[v.Kind] {
			return fmt.Errorf("member reference has invalid kind %q", v.Kind)
		}
		if v.Owner == "" || v.Name == "" {
			return fmt.Errorf("member reference %q is unresolved: owner and name are required", v.String())
		}
		return nil
	case TypeRef:
		if v == "" {
			return fmt.Errorf("type reference is empty")
		}
		return nil
	case BranchTarget:
		if v == "" {
			return fmt.Errorf("branch target has no label")
		}
		return nil
	default:
		return fmt.Errorf("unsupported operand type %T", op)
	}
}
