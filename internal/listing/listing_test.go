package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ilpatch/internal/ir"
)

func TestParse(t *testing.T) {
	src := `
# Player.Update prologue
ldarg 0
L1, L2: callvirt method:ItemStack::get_count
brfalse @L3
// trailing comment lines are skipped
ldstr "repair kit: 2"
L3: ldfld field:Outer::Inner::hp
newobj type:Widget
ret
`
	seq, err := Parse(src)
	require.NoError(t, err)

	want := ir.Sequence{
		ir.Inst("ldarg", ir.IntOperand(0)),
		ir.Inst("callvirt", ir.Method("ItemStack", "get_count")).WithLabels("L1", "L2"),
		ir.Inst("brfalse", ir.BranchTarget("L3")),
		ir.Inst("ldstr", ir.StringOperand("repair kit: 2")),
		ir.Inst("ldfld", ir.Field("Outer::Inner", "hp")).WithLabels("L3"),
		ir.Inst("newobj", ir.TypeRef("Widget")),
		ir.Inst("ret", nil),
	}
	assert.True(t, want.Equal(seq), "got:\n%s", seq)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
		line    int
	}{
		{"label without instruction", "nop\nL1: ", "label without instruction", 2},
		{"wildcard", "*", "wildcard opcode", 1},
		{"bad string", `ldstr "unterminated`, "invalid string operand", 1},
		{"bad member", "call method:NoSeparator", "must be Owner::Name", 1},
		{"unknown operand", "ldc 1.5", "unrecognized operand", 1},
		{"empty branch", "br @", "branch target has no label", 1},
		{"empty type", "newobj type:", "type reference is empty", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Message, tt.wantMsg)
		})
	}
}

func TestParsePattern(t *testing.T) {
	pattern, err := ParsePattern("ldarg 0\n*\ncall method:Game::Tick\n")
	require.NoError(t, err)

	assert.Equal(t, []ir.PatternElement{
		ir.Pat("ldarg", ir.IntOperand(0)),
		ir.Pat(ir.AnyOpcode, nil),
		ir.Pat("call", ir.Method("Game", "Tick")),
	}, pattern)

	_, err = ParsePattern("L1: nop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels are not allowed")
}

func TestFormatRoundTrip(t *testing.T) {
	seq := ir.Sequence{
		ir.Inst("ldarg", ir.IntOperand(-1)),
		ir.Inst("call", ir.Method("A.B", "C")).WithLabels("IL_0002", "L9"),
		ir.Inst("ldstr", ir.StringOperand("tab\tquote\"")),
		ir.Inst("br", ir.BranchTarget("IL_0002")),
	}

	text := Format(seq)
	assert.Equal(t, "ldarg -1\nIL_0002, L9: call method:A.B::C\nldstr \"tab\\tquote\\\"\"\nbr @IL_0002\n", text)

	back, err := Parse(text)
	require.NoError(t, err)
	assert.True(t, seq.Equal(back))

	assert.Equal(t, "", Format(nil))
}

func TestFormatPattern(t *testing.T) {
	text := FormatPattern([]ir.PatternElement{ir.Pat("*", nil), ir.Pat("ldc", ir.IntOperand(3))})
	assert.Equal(t, "*\nldc 3\n", text)
}

func TestParseOperand(t *testing.T) {
	tests := []struct {
		in   string
		want ir.Operand
	}{
		{"", nil},
		{"  ", nil},
		{"42", ir.IntOperand(42)},
		{"-7", ir.IntOperand(-7)},
		{`"x"`, ir.StringOperand("x")},
		{"@END", ir.BranchTarget("END")},
		{"type:List`1", ir.TypeRef("List`1")},
		{"method:Owner::Name", ir.Method("Owner", "Name")},
		{"field:Owner::name", ir.Field("Owner", "name")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
