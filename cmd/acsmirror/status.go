package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/database"
	"github.com/nao1215/acsmirror/internal/model"
)

// defaultStatusLimit is the number of runs listed without --limit.
const defaultStatusLimit = 10

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recorded runs",
		Long: `Status lists the most recent runs recorded in the transfer manifest.

Given a run ID it prints the report of that run, rebuilt from the manifest.

Examples:
  # The last ten runs
  acsmirror status

  # Every run
  acsmirror status -n 0

  # One run as Markdown, with every downloaded file
  acsmirror status 0b0e2c1c-5f2d-4b36-9a0c-6f1f7f1c9d11 -f markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultStatusLimit,
		"Number of runs to list (0 lists every run)")
	cmd.Flags().String("db-dir", "",
		"Directory of the transfer manifest (default: XDG data directory)")
	addReportFlags(cmd)

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}
	setupLogger(cmd, cfg.Verbose)

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	manifest, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}
		return err
	}
	defer manifest.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		summary, err := loadSummary(ctx, manifest, args[0])
		if err != nil {
			return err
		}
		return writeSummaries(cmd, []*model.Summary{summary}, cfg.Verbose)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runs, err := manifest.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}
	return printRuns(cmd.OutOrStdout(), runs)
}

// printRuns writes one aligned line per run.
func printRuns(w io.Writer, runs []database.RunStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTARTED\tSTATUS\tDOWNLOADED\tEXISTING\tSIZE\tISSUES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.Run.ID,
			r.Run.Kind,
			r.Run.Started.Local().Format("2006-01-02 15:04"),
			colorStatus(r.Run.Status),
			r.Downloaded,
			r.Existing,
			humanize.Bytes(uint64(max(r.Bytes, 0))),
			colorIssues(r.StructureIssues),
		)
	}
	return tw.Flush()
}

// colorStatus colors a run status for terminals. color disables itself
// when stdout is not a terminal or NO_COLOR is set.
func colorStatus(s model.RunStatus) string {
	switch s {
	case model.RunStatusSucceeded:
		return color.GreenString(string(s))
	case model.RunStatusFailed:
		return color.RedString(string(s))
	case model.RunStatusCanceled, model.RunStatusRunning:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

func colorIssues(n int) string {
	if n == 0 {
		return "0"
	}
	return color.YellowString("%d", n)
}

// loadSummary rebuilds the summary of one run from the manifest. Listing
// and directory counters are not recorded and stay zero.
func loadSummary(ctx context.Context, m *database.Manifest, id string) (*model.Summary, error) {
	run, err := m.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	transfers, err := m.RunTransfers(ctx, id)
	if err != nil {
		return nil, err
	}
	issues, err := m.RunStructureIssues(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &model.Summary{Run: *run, StructureIssues: issues}
	for _, t := range transfers {
		s.AddTransfer(t)
		if t.Year != "" && !slices.Contains(s.Years, t.Year) {
			s.Years = append(s.Years, t.Year)
		}
	}
	return s, nil
}
