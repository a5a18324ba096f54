package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/ilpatch/internal/ir"
)

// GeneratedPatchMessage is the log message carrying a generated listing when
// ExtraLogging is set. patchlog.Extract scans logs for it.
const GeneratedPatchMessage = "generated patch"

// Result is the outcome of one ApplyPatches call.
//
// INVARIANTS:
//   - len(NewInstructions) == len(original) + n*len(replacement) in insert mode,
//     len(original) + n*(len(replacement)-len(pattern)) in overwrite mode,
//     where n == len(OriginalPositions)
//   - every original label appears exactly once in NewInstructions; labels
//     defined by the replacement (allowed only when MaxPatches == 1) appear
//     once more each
//   - Positions is 1:1 with OriginalPositions and strictly increasing,
//     except for an empty overwrite block, where back-to-back deletions share
//     a position and Positions is only non-decreasing
//   - NewInstructions never aliases the request's sequences
type Result struct {
	// IsPatched is true when at least one match was applied and every edit
	// reconciled its labels.
	IsPatched bool `json:"is_patched"`

	// OriginalPositions holds accepted match starts in original coordinates.
	OriginalPositions []int `json:"original_positions"`

	// Positions holds the final start of each inserted or replacement block.
	Positions []int `json:"positions"`

	// NewInstructions is the rewritten body, or a copy of the original when
	// IsPatched is false.
	NewInstructions ir.Sequence `json:"new_instructions"`

	// Matches lists every accepted window, in original coordinates.
	Matches []ir.Match `json:"matches"`

	// Skipped lists candidate starts rejected by MinimumSafetyOffset.
	Skipped []int `json:"skipped,omitempty"`

	// Failure explains IsPatched == false. Nil on success.
	Failure *PatchError `json:"-"`
}

// BestInstructions returns NewInstructions when patched, else the request's
// original sequence. Callers install whatever this returns.
func (r *Result) BestInstructions(req *Request) ir.Sequence {
	if r != nil && r.IsPatched {
		return r.NewInstructions
	}
	return req.OriginalInstructions
}

// Patcher applies patch requests.
//
// A Patcher holds no per-call state and is safe for concurrent use on
// different requests.
type Patcher struct {
	logger *slog.Logger
}

// PatcherOption configures a Patcher.
type PatcherOption func(*Patcher)

// WithLogger sets the diagnostics logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) PatcherOption {
	return func(p *Patcher) {
		p.logger = logger
	}
}

// NewPatcher creates a Patcher.
func NewPatcher(opts ...PatcherOption) *Patcher {
	p := &Patcher{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Patcher) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// ApplyPatches finds every accepted match of the request's pattern and
// splices the replacement at each one.
//
// The error return is reserved for malformed requests. Pattern-not-found and
// label reconciliation failures are expected outcomes: they come back as a
// Result with IsPatched false, Failure set, and NewInstructions holding a
// copy of the original.
//
// Policy is all-or-nothing: if any edit fails to reconcile its labels, no
// edit from this call is kept.
func (p *Patcher) ApplyPatches(req *Request) (*Result, error) {
	if req == nil {
		return nil, newMalformedError("", "request is nil")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := p.log().With("target", req.TargetName)

	matches, skipped := findMatches(
		req.OriginalInstructions,
		req.SearchPattern,
		req.MinimumSafetyOffset,
		req.MaxPatches,
		req.operandComparator(),
	)

	for _, i := range skipped {
		logger.Warn("match rejected below safety offset",
			"code", ErrCodeInsufficientContext,
			"position", i,
			"minimum_safety_offset", req.MinimumSafetyOffset,
		)
	}

	if len(matches) == 0 {
		failure := NewNotFoundError(req.TargetName, len(skipped))
		logger.Error("patch failed", "code", failure.Code, "error", failure.Message)
		return unpatched(req, nil, skipped, failure), nil
	}

	out, err := applyMatches(req, matches)
	if err != nil {
		var pe *PatchError
		if !errors.As(err, &pe) {
			return nil, err
		}
		logger.Error("patch failed",
			"code", pe.Code,
			"error", pe.Message,
			"matches", len(matches),
		)
		return unpatched(req, matches, skipped, pe), nil
	}

	logger.Info("patch applied",
		"matches", len(matches),
		"original_positions", out.originalPositions,
		"positions", out.positions,
		"length_delta", out.lengthDelta,
		"insert", req.IsInsertMode,
	)
	if req.ExtraLogging {
		logger.Info(GeneratedPatchMessage, "listing", out.instructions.String())
	}

	return &Result{
		IsPatched:         true,
		OriginalPositions: out.originalPositions,
		Positions:         out.positions,
		NewInstructions:   out.instructions,
		Matches:           matches,
		Skipped:           skipped,
	}, nil
}

// BestInstructions applies the request and returns the sequence to install.
// A malformed request yields the original sequence together with the error.
func (p *Patcher) BestInstructions(req *Request) (ir.Sequence, error) {
	res, err := p.ApplyPatches(req)
	if err != nil {
		if req == nil {
			return nil, err
		}
		return req.OriginalInstructions, err
	}
	return res.BestInstructions(req), nil
}

func unpatched(req *Request, matches []ir.Match, skipped []int, failure *PatchError) *Result {
	return &Result{
		IsPatched:         false,
		OriginalPositions: []int{},
		Positions:         []int{},
		NewInstructions:   req.OriginalInstructions.Clone(),
		Matches:           matches,
		Skipped:           skipped,
		Failure:           failure,
	}
}

var defaultPatcher = NewPatcher()

// ApplyPatches applies req with a Patcher logging to slog.Default().
func ApplyPatches(req *Request) (*Result, error) {
	return defaultPatcher.ApplyPatches(req)
}

// BestInstructions applies req with the default Patcher and returns the
// sequence to install.
func BestInstructions(req *Request) (ir.Sequence, error) {
	return defaultPatcher.BestInstructions(req)
}
