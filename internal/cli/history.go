package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/ilpatch/internal/ir"
	"github.com/roach88/ilpatch/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Target      string // outcomes for one target across runs
	RunID       string // outcomes of one run
	OutcomeID   int64  // a single outcome
	ListRuns    bool   // list runs instead of outcomes
	ShowListing bool   // print the installed listing under each outcome
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Run      *ir.PatchRun      `json:"run,omitempty"`
	Runs     []ir.PatchRun     `json:"runs,omitempty"`
	Outcomes []ir.PatchOutcome `json:"outcomes"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the patch journal",
		Long: `Query the journal written by 'ilpatch apply --db'.

Without a selector, shows the outcomes of the latest run. Rows are
ordered by seq, so output is stable across invocations.

Examples:
  ilpatch history --db ./journal.db
  ilpatch history --db ./journal.db --runs
  ilpatch history --db ./journal.db --run 0192f0c4-...
  ilpatch history --db ./journal.db --target Game.Player::Update --listing
  ilpatch history --db ./journal.db --outcome 7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Target, "target", "", "show every outcome for this target")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the outcomes of this run")
	cmd.Flags().Int64Var(&opts.OutcomeID, "outcome", 0, "show a single outcome by id")
	cmd.Flags().BoolVar(&opts.ListRuns, "runs", false, "list journaled runs")
	cmd.Flags().BoolVar(&opts.ShowListing, "listing", false, "print the installed listing of each outcome")
	cmd.MarkFlagsMutuallyExclusive("target", "run", "outcome", "runs")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// store.Open would create a fresh journal; history only reads.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed+": open journal", err)
	}
	defer st.Close()

	result, err := queryHistory(ctx, st, opts)
	if errors.Is(err, sql.ErrNoRows) {
		return outputHistoryEmpty(cmd, opts)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed+": query journal", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), okResponse(result))
	}
	return outputHistoryText(cmd.OutOrStdout(), opts, result)
}

func queryHistory(ctx context.Context, st *store.Store, opts *HistoryOptions) (*HistoryResult, error) {
	result := &HistoryResult{Outcomes: []ir.PatchOutcome{}}

	switch {
	case opts.ListRuns:
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, sql.ErrNoRows
		}
		result.Runs = runs

	case opts.OutcomeID != 0:
		out, err := st.ReadOutcome(ctx, opts.OutcomeID)
		if err != nil {
			return nil, err
		}
		result.Outcomes = []ir.PatchOutcome{out}

	case opts.Target != "":
		outcomes, err := st.ReadTargetHistory(ctx, opts.Target)
		if err != nil {
			return nil, err
		}
		if len(outcomes) == 0 {
			return nil, sql.ErrNoRows
		}
		result.Outcomes = outcomes

	default:
		var run ir.PatchRun
		var err error
		if opts.RunID != "" {
			run, err = st.ReadRun(ctx, opts.RunID)
		} else {
			run, err = st.LatestRun(ctx)
		}
		if err != nil {
			return nil, err
		}
		outcomes, err := st.ReadRunOutcomes(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		result.Run = &run
		result.Outcomes = outcomes
	}

	return result, nil
}

func outputHistoryEmpty(cmd *cobra.Command, opts *HistoryOptions) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), okResponse(HistoryResult{Outcomes: []ir.PatchOutcome{}}))
	}

	w := cmd.OutOrStdout()
	switch {
	case opts.Target != "":
		fmt.Fprintf(w, "No outcomes found for target: %s\n", opts.Target)
	case opts.RunID != "":
		fmt.Fprintf(w, "No run found: %s\n", opts.RunID)
	case opts.OutcomeID != 0:
		fmt.Fprintf(w, "No outcome found: %d\n", opts.OutcomeID)
	default:
		fmt.Fprintln(w, "No runs journaled.")
	}
	return nil
}

func outputHistoryText(w io.Writer, opts *HistoryOptions, result *HistoryResult) error {
	if result.Runs != nil {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Seq", "Run", "Defs", "Engine"})
		for _, run := range result.Runs {
			tw.AppendRow(table.Row{run.Seq, run.ID, run.DefsDir, run.EngineVersion})
		}
		tw.Render()
		return nil
	}

	if result.Run != nil {
		fmt.Fprintf(w, "Run %s (seq %d, %s)\n", result.Run.ID, result.Run.Seq, result.Run.DefsDir)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Seq", "Patch", "Target", "Status", "Original", "Final", "Result"})
	for _, out := range result.Outcomes {
		status := "✓ patched"
		if !out.IsPatched {
			status = "✗ " + out.FailureCode
		}
		tw.AppendRow(table.Row{out.ID, out.Seq, out.PatchName, out.Target, status,
			formatPositions(out.OriginalPositions), formatPositions(out.Positions), shortHash(out.ResultHash)})
	}
	tw.Render()

	if opts.ShowListing {
		for _, out := range result.Outcomes {
			fmt.Fprintf(w, "\n# %s -> %s (outcome %d)\n", out.PatchName, out.Target, out.ID)
			fmt.Fprint(w, out.Listing)
		}
	}
	return nil
}

// shortHash trims a content hash for table display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
