package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ilpatch/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a test run with minimal required fields.
func createTestRun(id string, seq int64) ir.PatchRun {
	return ir.PatchRun{
		ID:            id,
		Seq:           seq,
		DefsDir:       "defs",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestOutcome creates a successful test outcome with one insertion.
func createTestOutcome(runID, patchName, target string, seq int64) ir.PatchOutcome {
	return ir.PatchOutcome{
		RunID:             runID,
		Seq:               seq,
		PatchName:         patchName,
		Target:            target,
		PatchDefHash:      "def-hash",
		OriginalHash:      "orig-hash",
		ResultHash:        "result-hash",
		IsPatched:         true,
		OriginalPositions: []int{2},
		Positions:         []int{2},
		Listing:           "nop\nret",
	}
}
