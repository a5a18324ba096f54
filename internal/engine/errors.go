package engine

import (
	"errors"
	"fmt"
)

// PatchError represents a patch failure detected by the engine.
//
// Failure kinds:
//   - Pattern not found: zero accepted matches
//   - Insufficient context: a match starts before MinimumSafetyOffset (logged per candidate)
//   - Label reconciliation: an edit would strand a jump label
//   - Malformed request: rejected at construction, before any matching
//
// PatchError includes structured fields for diagnostics.
type PatchError struct {
	// Code identifies the failure category.
	Code PatchErrorCode

	// Target is the diagnostic name of the patched method.
	Target string

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// PatchErrorCode categorizes patch failures.
type PatchErrorCode string

const (
	// ErrCodePatternNotFound indicates no match was accepted.
	ErrCodePatternNotFound PatchErrorCode = "PATTERN_NOT_FOUND"

	// ErrCodeInsufficientContext indicates a candidate started before the safety offset.
	ErrCodeInsufficientContext PatchErrorCode = "INSUFFICIENT_CONTEXT"

	// ErrCodeLabelReconciliation indicates a jump label had no safe destination.
	ErrCodeLabelReconciliation PatchErrorCode = "LABEL_RECONCILIATION_FAILED"

	// ErrCodeMalformedRequest indicates the request itself is invalid.
	ErrCodeMalformedRequest PatchErrorCode = "MALFORMED_REQUEST"
)

// Error implements the error interface.
func (e *PatchError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code PatchErrorCode) bool {
	var pe *PatchError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsNotFound returns true if the error reports a missing pattern.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodePatternNotFound)
}

// IsLabelError returns true if the error reports a label reconciliation failure.
func IsLabelError(err error) bool {
	return hasCode(err, ErrCodeLabelReconciliation)
}

// IsMalformed returns true if the error reports an invalid request.
func IsMalformed(err error) bool {
	return hasCode(err, ErrCodeMalformedRequest)
}

// NewNotFoundError creates a PatchError for a pattern with no accepted match.
func NewNotFoundError(target string, skipped int) *PatchError {
	return &PatchError{
		Code:    ErrCodePatternNotFound,
		Target:  target,
		Message: "search pattern not found",
		Details: map[string]string{
			"skipped_below_safety_offset": fmt.Sprintf("%d", skipped),
		},
	}
}

// NewLabelError creates a PatchError for labels stranded by an edit at the
// given original position.
func NewLabelError(target string, position int, reason string) *PatchError {
	return &PatchError{
		Code:    ErrCodeLabelReconciliation,
		Target:  target,
		Message: reason,
		Details: map[string]string{
			"original_position": fmt.Sprintf("%d", position),
		},
	}
}

// newMalformedError creates a PatchError for a request rejected at construction.
func newMalformedError(target, format string, args ...any) *PatchError {
	return &PatchError{
		Code:    ErrCodeMalformedRequest,
		Target:  target,
		Message: fmt.Sprintf(format, args...),
	}
}
