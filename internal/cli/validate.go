package cli

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"cuelang.org/go/cue"
	"github.com/spf13/cobra"

	"github.com/roach88/ilpatch/internal/compiler"
	"github.com/roach88/ilpatch/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Patches int                        `json:"patches"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <defs-dir>",
		Short: "Validate patch definitions without applying them",
		Long: `Validate CUE patch definitions without touching any method body.

Compiles every entry of the patch struct and runs the schema checks that
apply would run first: modes, offsets, limits, operand syntax, replacement
labels and duplicate names. All errors are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, defsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, validationErrors, err := loadAndValidate(defsDir)

	// Directory not found, no files, CUE syntax errors
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, defsDir)
	for _, def := range loadResult.Patches {
		formatter.VerboseLog("Validating patch: %s (%s, %s)", def.Name, def.Target, def.Mode)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, len(loadResult.Patches))
}

// loadErrorsToValidation converts compile errors collected by the loader.
func loadErrorsToValidation(errs []error) []compiler.ValidationError {
	var out []compiler.ValidationError
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			out = append(out, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr.Pos),
			})
			continue
		}
		out = append(out, compiler.ValidationError{
			Field:   "load",
			Message: err.Error(),
			Code:    ErrCodeGeneric,
		})
	}
	return out
}

var patchIndexRe = regexp.MustCompile(`^patches\[(\d+)\]\.`)

// validateAll runs schema validation on the compiled set and rewrites
// "patches[i]." field prefixes to "patch.<name>." with a source line.
func validateAll(result *LoadResult) []compiler.ValidationError {
	errs := compiler.Validate(result.Patches)
	for i := range errs {
		m := patchIndexRe.FindStringSubmatch(errs[i].Field)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx >= len(result.Patches) {
			continue
		}
		def := result.Patches[idx]
		errs[i].Field = "patch." + def.Name + "." + errs[i].Field[len(m[0]):]
		errs[i].Line = patchLine(result.CUEValue, def)
	}
	return errs
}

// patchLine returns the source line of a patch definition, or 0.
func patchLine(v cue.Value, def ir.PatchDef) int {
	if !v.Exists() {
		return 0
	}
	pv := v.LookupPath(cue.MakePath(cue.Str("patch"), cue.Str(def.Name)))
	if !pv.Exists() {
		return 0
	}
	return lineOf(pv.Pos())
}

// lineOf extracts a line number from a CUE position.
func lineOf(pos interface {
	IsValid() bool
	Line() int
}) int {
	if pos != nil && pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, patches int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Patches: patches})
	}

	fmt.Fprintf(formatter.Writer, "✓ All patches valid (%d definition(s))\n", patches)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: StatusError,
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateDefsDir validates all patch definitions in a directory.
// This is a helper function for external callers.
func ValidateDefsDir(defsDir string) ([]compiler.ValidationError, error) {
	_, errs, err := loadAndValidate(defsDir)
	return errs, err
}

func loadAndValidate(defsDir string) (*LoadResult, []compiler.ValidationError, error) {
	loadResult, loadErrors := LoadPatches(defsDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, nil, loadErrors[0]
	}

	errs := loadErrorsToValidation(loadErrors)
	return loadResult, append(errs, validateAll(loadResult)...), nil
}

// loadValidPatches loads a definition set and fails on any compile or
// schema error, listing each one on logw. Used by apply.
func loadValidPatches(defsDir string, logw io.Writer) ([]ir.PatchDef, error) {
	result, errs, err := loadAndValidate(defsDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load patches", err)
	}
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(logw, "  %s\n", e.Error())
		}
		return nil, NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}
	return result.Patches, nil
}
