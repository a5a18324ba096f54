package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/ilpatch/internal/engine"
	"github.com/roach88/ilpatch/internal/ir"
	"github.com/roach88/ilpatch/internal/listing"
	"github.com/roach88/ilpatch/internal/patchlog"
	"github.com/roach88/ilpatch/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Bodies   string // directory holding <target>.il listings
	Out      string // directory receiving patched listings
	Database string // journal database, optional
	LogFile  string // engine log destination, default stderr

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator

	// Clock allows overriding the journal sequencer (for testing).
	// If nil, the clock resumes after the highest seq in the database.
	Clock store.Sequencer
}

// ApplyRow is the outcome of one patch definition.
type ApplyRow struct {
	Patch             string `json:"patch"`
	Target            string `json:"target"`
	Mode              string `json:"mode"`
	Patched           bool   `json:"patched"`
	FailureCode       string `json:"failure_code,omitempty"`
	OriginalPositions []int  `json:"original_positions"`
	Positions         []int  `json:"positions"`
}

// ApplyResult holds the overall apply result.
type ApplyResult struct {
	RunID   string     `json:"run_id,omitempty"`
	Outputs []string   `json:"outputs,omitempty"`
	Rows    []ApplyRow `json:"rows"`
	Patched int        `json:"patched"`
	Failed  int        `json:"failed"`
	Total   int        `json:"total"`
}

// appliedTarget holds the chained state of one method body.
type appliedTarget struct {
	target   string
	final    ir.Sequence
	outcomes []ir.PatchOutcome
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <defs-dir>",
		Short: "Apply patch definitions to method bodies",
		Long: `Apply every patch definition in <defs-dir> to its target method body.

Bodies are read from --bodies, one listing per target named after the
sanitized target (Game.Player::Update -> Game.Player__Update.il).
Definitions sharing a target are applied in declaration order; each one
sees the body the previous one installed. A failed patch leaves the body
unchanged and the chain continues.

With --out the final bodies are written there. With --db the run and every
outcome are journaled for later inspection with 'ilpatch history'.

Exit codes:
  0 - Every patch applied
  1 - One or more patches failed (outputs and journal are still written)
  2 - Command error (invalid paths, unreadable bodies, etc.)

Examples:
  ilpatch apply ./patches --bodies ./bodies --out ./patched
  ilpatch apply ./patches --bodies ./bodies --db ./journal.db --format json
  ilpatch apply ./patches --bodies ./bodies --log ./apply.log`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bodies, "bodies", "", "directory of method body listings (required)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "directory for patched listings")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database")
	cmd.Flags().StringVar(&opts.LogFile, "log", "", "append engine logs to this file instead of stderr")
	_ = cmd.MarkFlagRequired("bodies")

	return cmd
}

func runApply(opts *ApplyOptions, defsDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Bodies); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("bodies directory not found: %s", opts.Bodies))
	}

	defs, err := loadValidPatches(defsDir, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	logw := cmd.ErrOrStderr()
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open log file", err)
		}
		defer f.Close()
		logw = f
	}
	logger := newLogger(logw, opts.Verbose)
	patcher := engine.NewPatcher(engine.WithLogger(logger))

	targets, err := applyAll(patcher, defs, opts.Bodies)
	if err != nil {
		return err
	}

	result := ApplyResult{Rows: []ApplyRow{}}
	for _, t := range targets {
		for _, out := range t.outcomes {
			result.Rows = append(result.Rows, rowFor(out, defs))
			if out.IsPatched {
				result.Patched++
			} else {
				result.Failed++
			}
		}
	}
	result.Total = result.Patched + result.Failed

	if opts.Out != "" {
		result.Outputs, err = writeOutputs(targets, opts.Out)
		if err != nil {
			return err
		}
	}

	if opts.Database != "" {
		result.RunID, err = journal(cmd.Context(), opts, defsDir, targets)
		if err != nil {
			return err
		}
		logger.Info("run journaled", "run_id", result.RunID, "db", opts.Database)
	}

	if opts.Format == "json" {
		return outputApplyJSON(cmd, result)
	}
	return outputApplyText(cmd, result)
}

// applyAll chains every definition over its target's body, in declaration
// order. Targets are returned in order of first appearance.
func applyAll(patcher *engine.Patcher, defs []ir.PatchDef, bodiesDir string) ([]*appliedTarget, error) {
	var order []*appliedTarget
	byTarget := make(map[string]*appliedTarget)

	for _, def := range defs {
		t, ok := byTarget[def.Target]
		if !ok {
			body, err := readBody(bodiesDir, def.Target)
			if err != nil {
				return nil, err
			}
			t = &appliedTarget{target: def.Target, final: body}
			byTarget[def.Target] = t
			order = append(order, t)
		}

		before := t.final
		out := ir.PatchOutcome{
			PatchName:         def.Name,
			Target:            def.Target,
			OriginalPositions: []int{},
			Positions:         []int{},
		}

		req, err := engine.FromPatchDef(def, before)
		var res *engine.Result
		if err == nil {
			res, err = patcher.ApplyPatches(req)
		}
		if err != nil {
			var pe *engine.PatchError
			if !errors.As(err, &pe) {
				return nil, WrapExitError(ExitCommandError, "failed to apply "+def.Name, err)
			}
			out.FailureCode = string(pe.Code)
		} else {
			t.final = res.BestInstructions(req)
			out.IsPatched = res.IsPatched
			if res.IsPatched {
				out.OriginalPositions = res.OriginalPositions
				out.Positions = res.Positions
			}
			if res.Failure != nil {
				out.FailureCode = string(res.Failure.Code)
			}
		}

		if err := hashOutcome(&out, def, before, t.final); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to hash "+def.Name, err)
		}
		out.Listing = listing.Format(t.final)
		t.outcomes = append(t.outcomes, out)
	}

	return order, nil
}

// readBody loads the listing for target from dir.
func readBody(dir, target string) (ir.Sequence, error) {
	path := filepath.Join(dir, patchlog.ListingFileName(target))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("%s: body for %s", ErrCodeReadFailed, target), err)
	}
	body, err := listing.Parse(string(data))
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("%s: body for %s", ErrCodeReadFailed, target), err)
	}
	return body, nil
}

func hashOutcome(out *ir.PatchOutcome, def ir.PatchDef, before, after ir.Sequence) error {
	var err error
	if out.PatchDefHash, err = ir.PatchDefHash(def); err != nil {
		return err
	}
	if out.OriginalHash, err = ir.SequenceHash(before); err != nil {
		return err
	}
	out.ResultHash, err = ir.SequenceHash(after)
	return err
}

// writeOutputs writes each target's final body to outDir.
func writeOutputs(targets []*appliedTarget, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeWriteFailed+": output directory", err)
	}
	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		path := filepath.Join(outDir, patchlog.ListingFileName(t.target))
		if err := os.WriteFile(path, []byte(listing.Format(t.final)), 0644); err != nil {
			return nil, WrapExitError(ExitCommandError, ErrCodeWriteFailed+": "+path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// journal records the run and its outcomes in one transaction.
func journal(ctx context.Context, opts *ApplyOptions, defsDir string, targets []*appliedTarget) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return "", WrapExitError(ExitCommandError, ErrCodeStoreFailed+": open journal", err)
	}
	defer st.Close()

	clock := opts.Clock
	if clock == nil {
		resumed, err := store.ResumeClock(ctx, st)
		if err != nil {
			return "", WrapExitError(ExitCommandError, ErrCodeStoreFailed+": resume clock", err)
		}
		clock = resumed
	}
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = store.UUIDv7Generator{}
	}

	run := ir.PatchRun{
		ID:            runIDs.Generate(),
		Seq:           clock.Next(),
		DefsDir:       defsDir,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}

	var outcomes []ir.PatchOutcome
	for _, t := range targets {
		for _, out := range t.outcomes {
			out.RunID = run.ID
			out.Seq = clock.Next()
			outcomes = append(outcomes, out)
		}
	}

	if _, err := st.WriteRunAtomic(ctx, run, outcomes); err != nil {
		return "", WrapExitError(ExitCommandError, ErrCodeStoreFailed+": write journal", err)
	}
	return run.ID, nil
}

func rowFor(out ir.PatchOutcome, defs []ir.PatchDef) ApplyRow {
	row := ApplyRow{
		Patch:             out.PatchName,
		Target:            out.Target,
		Patched:           out.IsPatched,
		FailureCode:       out.FailureCode,
		OriginalPositions: out.OriginalPositions,
		Positions:         out.Positions,
	}
	for _, def := range defs {
		if def.Name == out.PatchName {
			row.Mode = string(def.Mode)
			break
		}
	}
	return row
}

// outputApplyJSON outputs the apply result as JSON.
func outputApplyJSON(cmd *cobra.Command, result ApplyResult) error {
	response := okResponse(result)
	if result.Failed > 0 {
		fail := failedPatches(result.Failed)
		response = errorResponse(ErrCodePatchFailed, fail.Message, nil)
		response.Data = result
	}
	response.RunID = result.RunID

	if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return failedPatches(result.Failed)
	}
	return nil
}

// outputApplyText outputs the apply result as a table.
func outputApplyText(cmd *cobra.Command, result ApplyResult) error {
	w := cmd.OutOrStdout()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Patch", "Target", "Mode", "Status", "Original", "Final"})
	for _, row := range result.Rows {
		status := "✓ patched"
		if !row.Patched {
			status = "✗ " + row.FailureCode
		}
		tw.AppendRow(table.Row{row.Patch, row.Target, row.Mode, status,
			formatPositions(row.OriginalPositions), formatPositions(row.Positions)})
	}
	tw.Render()

	for _, path := range result.Outputs {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "journaled run %s\n", result.RunID)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Apply Summary: %d patched, %d failed, %d total\n", result.Patched, result.Failed, result.Total)

	if result.Failed > 0 {
		return failedPatches(result.Failed)
	}
	return nil
}

func formatPositions(positions []int) string {
	if len(positions) == 0 {
		return "-"
	}
	return fmt.Sprint(positions)
}
