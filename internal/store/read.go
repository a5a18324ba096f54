package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ilpatch/internal/ir"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const outcomeColumns = `
	id, run_id, seq, patch_name, target, patch_def_hash, original_hash, result_hash,
	is_patched, failure_code, original_positions, positions, listing`

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.PatchRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, defs_dir, engine_version, ir_version
		FROM patch_runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRun retrieves the run with the highest seq.
// Returns sql.ErrNoRows if the journal is empty.
func (s *Store) LatestRun(ctx context.Context) (ir.PatchRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, defs_dir, engine_version, ir_version
		FROM patch_runs
		ORDER BY seq DESC, id DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ReadRuns returns all runs ordered by seq ASC, id ASC.
func (s *Store) ReadRuns(ctx context.Context) ([]ir.PatchRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, defs_dir, engine_version, ir_version
		FROM patch_runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.PatchRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRunOutcomes returns the outcomes of one run in the order they were
// produced. Returns an empty slice (not nil) for an unknown run.
func (s *Store) ReadRunOutcomes(ctx context.Context, runID string) ([]ir.PatchOutcome, error) {
	return s.queryOutcomes(ctx, "run outcomes", `
		SELECT`+outcomeColumns+`
		FROM patch_outcomes
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`, runID)
}

// ReadTargetHistory returns every outcome recorded for a target across all
// runs, oldest first.
func (s *Store) ReadTargetHistory(ctx context.Context, target string) ([]ir.PatchOutcome, error) {
	return s.queryOutcomes(ctx, "target history", `
		SELECT`+outcomeColumns+`
		FROM patch_outcomes
		WHERE target = ?
		ORDER BY seq ASC, id ASC
	`, target)
}

// ReadOutcome retrieves a single outcome by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadOutcome(ctx context.Context, id int64) (ir.PatchOutcome, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+outcomeColumns+`
		FROM patch_outcomes
		WHERE id = ?
	`, id)
	return scanOutcome(row)
}

// LastSeq returns the highest seq number used in the store.
// Used to resume the logical clock across runs.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var runSeq, outSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM patch_runs
	`).Scan(&runSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq from patch_runs: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM patch_outcomes
	`).Scan(&outSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq from patch_outcomes: %w", err)
	}

	return max(runSeq, outSeq), nil
}

func (s *Store) queryOutcomes(ctx context.Context, what, query string, args ...any) ([]ir.PatchOutcome, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	outcomes := []ir.PatchOutcome{}
	for rows.Next() {
		out, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return outcomes, nil
}

// scanRun scans a row into a PatchRun struct.
// sql.ErrNoRows is returned unwrapped so callers can compare directly.
func scanRun(row rowScanner) (ir.PatchRun, error) {
	var run ir.PatchRun
	err := row.Scan(&run.ID, &run.Seq, &run.DefsDir, &run.EngineVersion, &run.IRVersion)
	if err == sql.ErrNoRows {
		return ir.PatchRun{}, err
	}
	if err != nil {
		return ir.PatchRun{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// scanOutcome scans a row into a PatchOutcome struct.
func scanOutcome(row rowScanner) (ir.PatchOutcome, error) {
	var out ir.PatchOutcome
	var origJSON, posJSON string

	err := row.Scan(
		&out.ID, &out.RunID, &out.Seq, &out.PatchName, &out.Target,
		&out.PatchDefHash, &out.OriginalHash, &out.ResultHash,
		&out.IsPatched, &out.FailureCode, &origJSON, &posJSON, &out.Listing,
	)
	if err == sql.ErrNoRows {
		return ir.PatchOutcome{}, err
	}
	if err != nil {
		return ir.PatchOutcome{}, fmt.Errorf("scan outcome: %w", err)
	}

	if out.OriginalPositions, err = unmarshalPositions(origJSON); err != nil {
		return ir.PatchOutcome{}, err
	}
	if out.Positions, err = unmarshalPositions(posJSON); err != nil {
		return ir.PatchOutcome{}, err
	}
	return out, nil
}
