package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/ilpatch/internal/ir"
)

func seedJournal(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	run1 := createTestRun("run-1", 1)
	failed := createTestOutcome(run1.ID, "strip", "T::Other", 3)
	failed.IsPatched = false
	failed.FailureCode = "PATTERN_NOT_FOUND"
	failed.OriginalPositions = nil
	failed.Positions = nil
	if _, err := s.WriteRunAtomic(ctx, run1, []ir.PatchOutcome{
		createTestOutcome(run1.ID, "hook", "T::M", 2),
		failed,
	}); err != nil {
		t.Fatalf("seed run-1: %v", err)
	}

	run2 := createTestRun("run-2", 4)
	if _, err := s.WriteRunAtomic(ctx, run2, []ir.PatchOutcome{
		createTestOutcome(run2.ID, "hook", "T::M", 5),
	}); err != nil {
		t.Fatalf("seed run-2: %v", err)
	}
}

func TestReadRun(t *testing.T) {
	s := createTestStore(t)
	seedJournal(t, s)

	run, err := s.ReadRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if !reflect.DeepEqual(run, createTestRun("run-1", 1)) {
		t.Errorf("ReadRun() = %+v", run)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LatestRun() on empty journal error = %v, want sql.ErrNoRows", err)
	}

	seedJournal(t, s)
	run, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if run.ID != "run-2" {
		t.Errorf("LatestRun() = %q, want run-2", run.ID)
	}
}

func TestReadRuns_Ordered(t *testing.T) {
	s := createTestStore(t)
	seedJournal(t, s)

	runs, err := s.ReadRuns(context.Background())
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-1" || runs[1].ID != "run-2" {
		t.Errorf("ReadRuns() = %+v", runs)
	}
}

func TestReadRuns_OrderedBySeqNotID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// ids sort opposite to seq
	for _, run := range []ir.PatchRun{createTestRun("zz-late", 9), createTestRun("aa-early", 2)} {
		if err := s.WriteRun(ctx, run); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	runs, err := s.ReadRuns(ctx)
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "aa-early" || runs[1].ID != "zz-late" {
		t.Errorf("ReadRuns() = %+v", runs)
	}
}

func TestReadRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ReadRuns(context.Background())
	if err != nil {
		t.Fatalf("ReadRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("ReadRuns() = %#v, want empty slice", runs)
	}
}

func TestReadRunOutcomes(t *testing.T) {
	s := createTestStore(t)
	seedJournal(t, s)

	outcomes, err := s.ReadRunOutcomes(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadRunOutcomes() failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	hook, strip := outcomes[0], outcomes[1]
	if hook.PatchName != "hook" || !hook.IsPatched {
		t.Errorf("outcome[0] = %+v", hook)
	}
	if !reflect.DeepEqual(hook.Positions, []int{2}) {
		t.Errorf("outcome[0].Positions = %v", hook.Positions)
	}
	if strip.IsPatched || strip.FailureCode != "PATTERN_NOT_FOUND" {
		t.Errorf("outcome[1] = %+v", strip)
	}
	if strip.Positions == nil || len(strip.Positions) != 0 {
		t.Errorf("failed outcome positions = %#v, want empty slice", strip.Positions)
	}
}

func TestReadRunOutcomes_UnknownRunIsEmpty(t *testing.T) {
	s := createTestStore(t)

	outcomes, err := s.ReadRunOutcomes(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ReadRunOutcomes() failed: %v", err)
	}
	if outcomes == nil || len(outcomes) != 0 {
		t.Errorf("ReadRunOutcomes() = %#v, want empty slice", outcomes)
	}
}

func TestReadTargetHistory(t *testing.T) {
	s := createTestStore(t)
	seedJournal(t, s)

	history, err := s.ReadTargetHistory(context.Background(), "T::M")
	if err != nil {
		t.Fatalf("ReadTargetHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(history))
	}
	if history[0].RunID != "run-1" || history[1].RunID != "run-2" {
		t.Errorf("history not ordered by seq: %s, %s", history[0].RunID, history[1].RunID)
	}
}

func TestReadOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-1", 1)
	ids, err := s.WriteRunAtomic(ctx, run, []ir.PatchOutcome{createTestOutcome(run.ID, "hook", "T::M", 2)})
	if err != nil {
		t.Fatalf("WriteRunAtomic() failed: %v", err)
	}

	out, err := s.ReadOutcome(ctx, ids[0])
	if err != nil {
		t.Fatalf("ReadOutcome() failed: %v", err)
	}
	want := createTestOutcome(run.ID, "hook", "T::M", 2)
	want.ID = ids[0]
	if !reflect.DeepEqual(out, want) {
		t.Errorf("ReadOutcome() = %+v, want %+v", out, want)
	}

	if _, err := s.ReadOutcome(ctx, 999); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadOutcome(999) error = %v, want sql.ErrNoRows", err)
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() on empty journal = %d", seq)
	}

	seedJournal(t, s)
	if seq, _ = s.LastSeq(ctx); seq != 5 {
		t.Errorf("LastSeq() = %d, want 5", seq)
	}
}
