package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ilpatch/internal/engine"
	"github.com/roach88/ilpatch/internal/ir"
)

// Scenario defines a patch conformance scenario.
// A scenario applies one patch definition to one method body and asserts
// on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Target is the method name used in diagnostics.
	Target string `yaml:"target"`

	// Body is the original method body as a listing.
	Body string `yaml:"body"`

	// Patch describes the request applied to Body.
	Patch PatchStep `yaml:"patch"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// PatchStep is the YAML form of a patch definition, without name and target.
type PatchStep struct {
	Mode            string `yaml:"mode"`
	Offset          int    `yaml:"offset,omitempty"`
	MaxPatches      int    `yaml:"max_patches,omitempty"`
	MinSafetyOffset int    `yaml:"min_safety_offset,omitempty"`

	// Pattern is a pattern listing ("*" matches any opcode).
	Pattern string `yaml:"pattern"`

	// Replacement is a listing; may be empty in overwrite mode.
	Replacement string `yaml:"replacement,omitempty"`
}

// Assertion validates the patch outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "patched": the request was applied
	// - "not_patched": the request failed, optionally with Code
	// - "length_law": output length follows from the match count
	// - "labels_conserved": every original label appears exactly once
	// - "positions": OriginalPositions and Positions equal Original and Final
	// - "reapply_inserts_again": applying the same insert to the output patches again
	// - "safety_offset": no accepted match starts below min_safety_offset
	Type string `yaml:"type"`

	// Code is the expected failure code (used by not_patched).
	Code string `yaml:"code,omitempty"`

	// Original is the expected OriginalPositions (used by positions).
	Original []int `yaml:"original,omitempty"`

	// Final is the expected Positions (used by positions).
	Final []int `yaml:"final,omitempty"`
}

// Assertion type constants.
const (
	AssertPatched             = "patched"
	AssertNotPatched          = "not_patched"
	AssertLengthLaw           = "length_law"
	AssertLabelsConserved     = "labels_conserved"
	AssertPositions           = "positions"
	AssertReapplyInsertsAgain = "reapply_inserts_again"
	AssertSafetyOffset        = "safety_offset"
)

var failureCodes = map[string]bool{
	string(engine.ErrCodePatternNotFound):     true,
	string(engine.ErrCodeLabelReconciliation): true,
	string(engine.ErrCodeMalformedRequest):    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Listing syntax is checked when the scenario runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Target == "" {
		return fmt.Errorf("target is required")
	}

	if strings.TrimSpace(s.Body) == "" {
		return fmt.Errorf("body is required and must be non-empty")
	}

	if !ir.ValidPatchModes[ir.PatchMode(s.Patch.Mode)] {
		return fmt.Errorf("patch.mode: invalid mode %q, must be \"insert\" or \"overwrite\"", s.Patch.Mode)
	}

	if strings.TrimSpace(s.Patch.Pattern) == "" {
		return fmt.Errorf("patch.pattern is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPatched, AssertLengthLaw, AssertLabelsConserved, AssertSafetyOffset:
	case AssertNotPatched:
		if a.Code != "" && !failureCodes[a.Code] {
			return fmt.Errorf("assertions[%d]: unknown failure code %q", index, a.Code)
		}
	case AssertPositions:
		if a.Original == nil && a.Final == nil {
			return fmt.Errorf("assertions[%d]: original or final is required for positions", index)
		}
	case AssertReapplyInsertsAgain:
		if s.Patch.Mode != string(ir.ModeInsert) {
			return fmt.Errorf("assertions[%d]: reapply_inserts_again requires insert mode", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Code != "" && a.Type != AssertNotPatched {
		return fmt.Errorf("assertions[%d]: code is only valid for not_patched", index)
	}

	return nil
}
