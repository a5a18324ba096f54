package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ilpatch/internal/compiler"
	"github.com/roach88/ilpatch/internal/ir"
)

// LoadMode controls how errors are handled during patch loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the patch definitions loaded from a directory.
type LoadResult struct {
	// Patches are in declaration order. Definitions sharing a target are
	// applied in this order.
	Patches   []ir.PatchDef
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during patch loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPatches loads and compiles the `patch` struct of the CUE files in dir.
//
//	patch: hook_tick: {
//		target: "Game.Player::Update"
//		mode:   "insert"
//		...
//	}
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all compile errors.
// Schema validation (compiler.Validate) is left to the caller.
func LoadPatches(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("patch directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing patch directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	patchesVal := value.LookupPath(cue.ParsePath("patch"))
	if patchesVal.Exists() {
		iter, iterErr := patchesVal.Fields()
		if iterErr != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating patches: %v", iterErr)}}
		}
		for iter.Next() {
			def, compileErr := compiler.CompilePatch(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "patch."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Patches = append(result.Patches, *def)
		}
	}

	if len(result.Patches) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no patch definitions found"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		field := compileErr.Field
		if compileErr.Patch != "" {
			field = "patch." + compileErr.Patch + "." + field
		}
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: field + ": " + compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeReadFailed  = "E008" // Body or log read error
	ErrCodeStoreFailed = "E009" // Journal open/write error

	// Patch definition errors not covered by compiler.Validate
	ErrCodeInvalidPattern     = "E130" // pattern listing does not parse
	ErrCodeInvalidReplacement = "E131" // replacement listing does not parse
	ErrCodeInvalidNumber      = "E132" // offset / limit is not an int
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Indexed fields such as "pattern[2].operand" map by their root.
func MapFieldToErrorCode(field string) string {
	if i := strings.IndexAny(field, "[."); i >= 0 {
		field = field[:i]
	}
	switch field {
	case "target":
		return compiler.ErrPatchTargetEmpty
	case "mode":
		return compiler.ErrInvalidPatchMode
	case "pattern":
		return ErrCodeInvalidPattern
	case "replacement":
		return ErrCodeInvalidReplacement
	case "offset", "max_patches", "min_safety_offset":
		return ErrCodeInvalidNumber
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
