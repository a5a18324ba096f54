package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ilpatch/internal/ir"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.PatchRun) error {
	if err := insertRun(ctx, s.db, run); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteOutcome inserts an outcome record into the store.
// Returns the ID and whether a new record was inserted.
//
// An outcome is identified by (run_id, patch_name, target). Writing the same
// triple twice returns the existing ID and inserted=false.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteOutcome(ctx context.Context, out ir.PatchOutcome) (id int64, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write outcome: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id, inserted, err = insertOutcome(ctx, tx, out)
	if err != nil {
		return 0, false, fmt.Errorf("write outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write outcome: commit: %w", err)
	}
	return id, inserted, nil
}

// WriteRunAtomic writes a run and all of its outcomes in one transaction.
// Either the whole run lands in the journal or none of it does.
//
// Returns the outcome IDs in input order.
func (s *Store) WriteRunAtomic(ctx context.Context, run ir.PatchRun, outcomes []ir.PatchOutcome) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("atomic run: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return nil, fmt.Errorf("atomic run: %w", err)
	}

	ids := make([]int64, 0, len(outcomes))
	for i, out := range outcomes {
		if out.RunID != run.ID {
			return nil, fmt.Errorf("atomic run: outcome %d belongs to run %q, not %q", i, out.RunID, run.ID)
		}
		id, _, err := insertOutcome(ctx, tx, out)
		if err != nil {
			return nil, fmt.Errorf("atomic run: outcome %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("atomic run: commit: %w", err)
	}
	return ids, nil
}

func insertRun(ctx context.Context, db execer, run ir.PatchRun) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO patch_runs
		(id, seq, defs_dir, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.DefsDir,
		run.EngineVersion,
		run.IRVersion,
	)
	return err
}

func insertOutcome(ctx context.Context, db execer, out ir.PatchOutcome) (id int64, inserted bool, err error) {
	origJSON, err := marshalPositions(out.OriginalPositions)
	if err != nil {
		return 0, false, err
	}
	posJSON, err := marshalPositions(out.Positions)
	if err != nil {
		return 0, false, err
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO patch_outcomes
		(run_id, seq, patch_name, target, patch_def_hash, original_hash, result_hash,
		 is_patched, failure_code, original_positions, positions, listing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, patch_name, target) DO NOTHING
	`,
		out.RunID,
		out.Seq,
		out.PatchName,
		out.Target,
		out.PatchDefHash,
		out.OriginalHash,
		out.ResultHash,
		out.IsPatched,
		out.FailureCode,
		origJSON,
		posJSON,
		out.Listing,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("last insert id: %w", err)
		}
		return id, true, nil
	}

	// Conflict - row already exists, fetch the existing ID
	err = db.QueryRowContext(ctx, `
		SELECT id FROM patch_outcomes
		WHERE run_id = ? AND patch_name = ? AND target = ?
	`, out.RunID, out.PatchName, out.Target).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("select existing: %w", err)
	}
	return id, false, nil
}
