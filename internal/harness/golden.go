package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ilpatch/internal/listing"
)

// Snapshot renders a result as a golden listing.
//
// The header lines start with '#', so a snapshot is itself a valid listing
// and listing.Parse recovers the installed sequence from it.
func Snapshot(scenarioName string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# scenario: %s\n", scenarioName)
	fmt.Fprintf(&b, "# patched: %t\n", result.IsPatched)
	if result.FailureCode != "" {
		fmt.Fprintf(&b, "# failure: %s\n", result.FailureCode)
	}
	fmt.Fprintf(&b, "# original_positions: %v\n", result.OriginalPositions)
	fmt.Fprintf(&b, "# positions: %v\n", result.Positions)
	b.WriteString(listing.Format(result.Instructions))
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the installed sequence
// against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
