package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
//
// A patch that does not apply, a failing scenario or an invalid definition
// is a failure of the input (1). A path that does not exist, an unreadable
// body or a broken journal is a failure of the command itself (2).
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// Response status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes reported in JSON output for input failures.
const (
	ErrCodePatchFailed = "E_PATCH_FAILED"
	ErrCodeTestFailed  = "E_TEST_FAILED"
)

// ExitError carries the process exit code for a command error.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Errors that are not ExitErrors (cobra flag errors, for example) map to
// ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// failedPatches is returned by apply when n definitions did not apply.
func failedPatches(n int) *ExitError {
	return NewExitError(ExitFailure, fmt.Sprintf("%d patch(es) failed", n))
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`

	// RunID names the journal run written by apply --db.
	RunID string `json:"run_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"` // E0xx/E1xx or E_PATCH_FAILED, E_TEST_FAILED
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func okResponse(data any) CLIResponse {
	return CLIResponse{Status: StatusOK, Data: data}
}

func errorResponse(code, message string, details any) CLIResponse {
	return CLIResponse{
		Status: StatusError,
		Error:  &CLIError{Code: code, Message: message, Details: details},
	}
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// OutputFormatter writes text or JSON output for compile and validate.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; defaults to Writer
	Verbose   bool
}

// Success writes data as an ok response, or as text.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return writeJSON(f.Writer, okResponse(data))
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes an error response, or "Error [code]: message" as text.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return writeJSON(f.Writer, errorResponse(code, message, details))
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a line to ErrWriter when verbose, so JSON on Writer
// stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
