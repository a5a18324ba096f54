// Package engine implements the instruction-sequence patch engine.
//
// The engine performs structural search-and-replace over a method body: it
// finds every window matching an ordered pattern, splices a replacement block
// in (insert mode) or over it (overwrite mode), keeps every jump label
// attached to an equivalent instruction, and reports where each edit landed.
//
// ARCHITECTURE:
//
// Request Flow:
// 1. NewRequest validates the request; malformed requests never reach matching
// 2. findMatches scans the original left to right (matcher.go)
// 3. applyMatches folds the matches over a working copy in ascending order (applier.go)
// 4. Each edit reconciles labels before splicing (labels.go)
// 5. The position translator shifts later match starts by earlier deltas (translator.go)
// 6. The Result carries positions, the new sequence, or the failure
//
// The engine is synchronous and holds no shared mutable state. Inputs are
// never mutated; NewInstructions is always a fresh copy.
//
// CRITICAL PATTERNS:
//
// Fail Closed:
// Pattern-not-found and label reconciliation failures are outcomes, not
// errors. Result.BestInstructions falls back to the untouched original.
//
// All-Or-Nothing:
// A reconciliation failure on any match discards every edit of the call.
//
// Label Conservation:
// Every label in the original appears exactly once in the result. A label
// that cannot be moved to an equivalent control-flow point fails the call.
package engine
