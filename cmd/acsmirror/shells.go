package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/config"
	"github.com/nao1215/acsmirror/internal/pipeline"
)

// NewShellsCmd creates the shells command.
func NewShellsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shells",
		Short: "Mirror the table shells tree",
		Long: `Shells mirrors the table shell workbooks, one directory per year, into
<output-dir>/table_shells.

Examples:
  # Mirror the workbooks next to the summary files
  acsmirror shells -o acs_sf_downloads

  # Only Excel workbooks
  acsmirror shells --shell-ext .xls --shell-ext .xlsx`,
		Args: cobra.NoArgs,
		RunE: runShellsCmd,
	}

	cmd.Flags().String("shells-url", config.DefaultShellsURL,
		"Root of the table shells tree")
	cmd.Flags().StringSlice("shell-ext", nil,
		"Accepted extension, repeatable (default: .xls .xlsx .csv .txt)")
	addCrawlFlags(cmd)

	return cmd
}

// runShellsCmd executes the shells command.
func runShellsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyShellsFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.ShellsURL == "" {
		return fmt.Errorf("configuration error: %w", config.ErrNoBaseURL)
	}
	if err := checkReportFlags(cmd); err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, stop := signalContext(cmd)
	defer stop()

	c, closeManifest, err := newCrawler(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer closeManifest()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewShellsStep(c, cfg.ShellsURL, cfg.OutputDir))

	state, runErr := p.Execute(ctx)
	if err := writeSummaries(cmd, state.Summaries, cfg.Verbose); err != nil {
		return err
	}
	return runErr
}

// applyShellsFlags copies the shells flags the user set onto cfg.
func applyShellsFlags(cmd *cobra.Command, cfg *config.Config) error {
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}

	f := cmd.Flags()
	var err error
	if f.Changed("shells-url") {
		if cfg.ShellsURL, err = f.GetString("shells-url"); err != nil {
			return err
		}
	}
	if f.Changed("shell-ext") {
		if cfg.ShellExtensions, err = f.GetStringSlice("shell-ext"); err != nil {
			return err
		}
	}
	return nil
}
