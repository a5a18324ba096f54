// Package store provides SQLite-backed durable storage for the patch journal.
//
// The journal is append-only:
//   - Runs: one row per `ilpatch apply` invocation
//   - Outcomes: one row per (run, patch, target), successful or not
//
// # Critical Patterns
//
// Outcome Idempotency
//   - UNIQUE(run_id, patch_name, target) constraint
//   - Writing the same outcome twice returns the existing row
//
// Logical Time
//   - All ordering uses seq INTEGER from Clock, NEVER timestamps
//   - ResumeClock continues after the highest seq already stored
//
// Deterministic Query Results
//   - All list queries order by seq ASC, id ASC
//   - Empty results are empty slices, never nil
//
// Content Hashes
//   - patch_def_hash, original_hash and result_hash come from internal/ir/hash.go
//   - Position lists are stored as canonical JSON arrays
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
