package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSequence = "ilpatch/sequence/v1"
	DomainPatchDef = "ilpatch/patchdef/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SequenceHash computes the content-addressed identity of a sequence,
// labels included. Two structurally equal sequences hash the same.
func SequenceHash(seq Sequence) (string, error) {
	canonical, err := MarshalCanonical(seq)
	if err != nil {
		return "", fmt.Errorf("SequenceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSequence, canonical), nil
}

// PatchDefHash computes the identity of a patch definition.
// Name and ExtraLogging are excluded: renaming a patch or turning on
// diagnostics does not change what it does.
func PatchDefHash(def PatchDef) (string, error) {
	canonical, err := MarshalCanonical(def)
	if err != nil {
		return "", fmt.Errorf("PatchDefHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPatchDef, canonical), nil
}

// MustSequenceHash is like SequenceHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSequenceHash(seq Sequence) string {
	h, err := SequenceHash(seq)
	if err != nil {
		panic(err)
	}
	return h
}
