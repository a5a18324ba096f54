package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperandsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Operand
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, IntOperand(0), false},
		{"value vs nil", IntOperand(0), nil, false},
		{"same int", IntOperand(4), IntOperand(4), true},
		{"int vs string", IntOperand(4), StringOperand("4"), false},
		{"same member", Method("A", "B"), Method("A", "B"), true},
		{"method vs field", Method("A", "B"), Field("A", "B"), false},
		{"same type", TypeRef("X"), TypeRef("X"), true},
		{"branch vs type", BranchTarget("X"), TypeRef("X"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OperandsEqual(tt.a, tt.b))
		})
	}
}

func TestValidateOperand(t *testing.T) {
	valid := []Operand{nil, IntOperand(1), StringOperand(""), Method("A", "B"), TypeRef("T"), BranchTarget("L")}
	for _, op := range valid {
		assert.NoError(t, ValidateOperand(op), "operand %v", op)
	}

	invalid := []Operand{
		Method("", "B"),
		Field("A", ""),
		MemberRef{Kind: "property", Owner: "A", Name: "B"},
		TypeRef(""),
		BranchTarget(""),
	}
	for _, op := range invalid {
		assert.Error(t, ValidateOperand(op), "operand %#v", op)
	}
}

func TestFormatOperand(t *testing.T) {
	assert.Equal(t, "", FormatOperand(nil))
	assert.Equal(t, `"hi"`, FormatOperand(StringOperand("hi")))
	assert.Equal(t, "@L", FormatOperand(BranchTarget("L")))
	assert.Equal(t, "type:T", FormatOperand(TypeRef("T")))
}
