package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `
name: test_scenario
description: "Test scenario for validation"
target: T::M
body: |
  ldarg 0
  ret
patch:
  mode: insert
  offset: 0
  max_patches: 1
  pattern: |
    ret
  replacement: |
    nop
assertions:
  - type: patched
  - type: positions
    original: [1]
    final: [1]
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "T::M", scenario.Target)
	assert.Equal(t, "ldarg 0\nret\n", scenario.Body)
	assert.Equal(t, "insert", scenario.Patch.Mode)
	assert.Equal(t, 1, scenario.Patch.MaxPatches)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, []int{1}, scenario.Assertions[1].Original)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, validScenarioYAML+"assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_ValidationErrors(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Target:      "T::M",
			Body:        "ret",
			Patch:       PatchStep{Mode: "insert", Pattern: "ret", Replacement: "nop"},
			Assertions:  []Assertion{{Type: AssertPatched}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"missing target", func(s *Scenario) { s.Target = "" }, "target is required"},
		{"blank body", func(s *Scenario) { s.Body = "  \n" }, "body is required"},
		{"bad mode", func(s *Scenario) { s.Patch.Mode = "append" }, `invalid mode "append"`},
		{"missing pattern", func(s *Scenario) { s.Patch.Pattern = "" }, "patch.pattern is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"empty type", func(s *Scenario) { s.Assertions[0].Type = "" }, "type is required"},
		{"unknown type", func(s *Scenario) { s.Assertions[0].Type = "trace_order" }, `unknown assertion type "trace_order"`},
		{"unknown code", func(s *Scenario) {
			s.Assertions[0] = Assertion{Type: AssertNotPatched, Code: "OOPS"}
		}, `unknown failure code "OOPS"`},
		{"code on patched", func(s *Scenario) { s.Assertions[0].Code = "PATTERN_NOT_FOUND" }, "code is only valid for not_patched"},
		{"positions without lists", func(s *Scenario) { s.Assertions[0].Type = AssertPositions }, "original or final is required"},
		{"reapply on overwrite", func(s *Scenario) {
			s.Patch.Mode = "overwrite"
			s.Assertions[0].Type = AssertReapplyInsertsAgain
		}, "requires insert mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, validateScenario(base()))
}

func TestParseScenario_NotPatchedCode(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: s
description: d
target: T::M
body: ret
patch:
  mode: insert
  pattern: call method:X::Y
  replacement: nop
assertions:
  - type: not_patched
    code: PATTERN_NOT_FOUND
`))
	require.NoError(t, err)
}
