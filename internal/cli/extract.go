package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/ilpatch/internal/patchlog"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	Out    string // output directory; derived from the log name when empty
	Prefix string // prefix for the derived output directory
}

// ExtractedListing is one listing file written by extract.
type ExtractedListing struct {
	Target string `json:"target"`
	Line   int    `json:"line"`
	Path   string `json:"path"`
}

// ExtractResult holds the extract result.
type ExtractResult struct {
	Log      string             `json:"log"`
	OutDir   string             `json:"out_dir"`
	Listings []ExtractedListing `json:"listings"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtractOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "extract <log-file>",
		Short: "Extract generated patch listings from an engine log",
		Long: `Scan an engine log for "generated patch" records and write one
listing file per target.

Patch definitions with extra_logging set log the body they generated. Both
the text and JSON slog formats are recognised; other lines are ignored.
When a target was patched more than once, the last record wins.

Without --out the listings go to <prefix>_<tag> next to the log, where
<tag> is a _vX.Y.Z_ version found in the log name, or the log name itself.

Examples:
  ilpatch extract ./apply.log
  ilpatch extract ./output_log_v2.5.1_client.txt --prefix dumps
  ilpatch extract ./apply.log --out ./generated --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory for listings")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "patches", "prefix for the derived output directory")

	return cmd
}

func runExtract(opts *ExtractOptions, logPath string, cmd *cobra.Command) error {
	f, err := os.Open(logPath)
	if os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("log file not found: %s", logPath))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeReadFailed+": open log", err)
	}
	defer f.Close()

	records, err := patchlog.Extract(f, newLogger(cmd.ErrOrStderr(), opts.Verbose))
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeReadFailed+": scan log", err)
	}

	outDir := opts.Out
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(logPath), patchlog.DefaultOutputDir(logPath, opts.Prefix))
	}

	result := ExtractResult{Log: logPath, OutDir: outDir, Listings: []ExtractedListing{}}

	if len(records) > 0 {
		written, err := patchlog.WriteListings(records, outDir)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": write listings", err)
		}
		for _, w := range written {
			result.Listings = append(result.Listings, ExtractedListing{Target: w.Target, Line: w.Line, Path: w.Path})
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), okResponse(result))
	}

	w := cmd.OutOrStdout()
	if len(result.Listings) == 0 {
		fmt.Fprintln(w, "No generated patches found.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Target", "Log Line", "File"})
	for _, l := range result.Listings {
		target := l.Target
		if target == "" {
			target = "(unnamed)"
		}
		tw.AppendRow(table.Row{target, l.Line, l.Path})
	}
	tw.Render()

	fmt.Fprintf(w, "✓ Extracted %d listing(s) to %s\n", len(result.Listings), outDir)
	return nil
}
