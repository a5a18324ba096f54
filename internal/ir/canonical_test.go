package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{1, "two", false}, `[1,"two",false]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"b": 1, "a": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	// 0xD800 < 0xE000, so the surrogate pair sorts first
	expected := `{"` + "\U00010000" + `":2,"` + "\uE000" + `":1}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(`call method:List<T>::Add & more`)
	require.NoError(t, err)

	assert.Equal(t, `"call method:List<T>::Add & more"`, string(result))
	assert.NotContains(t, string(result), "\\u003c")
	assert.NotContains(t, string(result), "\\u0026")
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantMsg string
	}{
		{"null", nil, "null"},
		{"float64", 3.14, "float"},
		{"float32", float32(3.14), "float"},
		{"nested float", map[string]any{"x": []any{1.5}}, "float"},
		{"unsupported", struct{}{}, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	r1, err := MarshalCanonical(Inst("ldstr", StringOperand(composed)))
	require.NoError(t, err)
	r2, err := MarshalCanonical(Inst("ldstr", StringOperand(decomposed)))
	require.NoError(t, err)

	assert.Equal(t, r1, r2, "NFC normalization should make these equal")
}

func TestMarshalCanonicalInstruction(t *testing.T) {
	inst := Inst("callvirt", Method("ItemStack", "get_count")).WithLabels("L2", "L1")

	result, err := MarshalCanonical(inst)
	require.NoError(t, err)

	// Keys sorted; label order preserved as stored.
	assert.Equal(t,
		`{"labels":["L2","L1"],"opcode":"callvirt","operand":"method:ItemStack::get_count"}`,
		string(result))
}

func TestMarshalCanonicalSequence(t *testing.T) {
	seq := Sequence{
		Inst("ldarg", IntOperand(0)),
		Inst("ret", nil),
	}

	result, err := MarshalCanonical(seq)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"labels":[],"opcode":"ldarg","operand":"0"},{"labels":[],"opcode":"ret","operand":""}]`,
		string(result))
}

func TestMarshalCanonicalPatchDef(t *testing.T) {
	def := PatchDef{
		Name:        "ignored",
		Target:      "T::M",
		Mode:        ModeInsert,
		MaxPatches:  1,
		Pattern:     []PatternElement{Pat(AnyOpcode, nil)},
		Replacement: Sequence{Inst("nop", nil)},
	}

	result, err := MarshalCanonical(def)
	require.NoError(t, err)

	s := string(result)
	assert.NotContains(t, s, "ignored")
	assert.NotContains(t, s, "extra_logging")
	assert.Contains(t, s, `"max_patches":1`)
	assert.Contains(t, s, `"pattern":[{"opcode":"*","operand":""}]`)
}
