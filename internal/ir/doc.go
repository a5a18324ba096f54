// Package ir provides the instruction token model for ilpatch.
//
// This package contains type definitions and their canonical encodings only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Operands are pre-resolved and opaque: ir never looks up a symbol
//   - Labels are a side table on each Instruction (LabelSet), not a separate node
//   - Sequence values handed to the engine are never mutated; every edit
//     produces a fresh copy (Sequence.Clone)
//   - Identity hashes use canonical JSON with domain separation (hash.go)
package ir
