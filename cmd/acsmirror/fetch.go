package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/config"
	"github.com/nao1215/acsmirror/internal/pipeline"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Mirror the summary file tree",
		Long: `Fetch walks the summary file tree year by year and downloads:
- every documentation file with an accepted extension
- the file templates of each year
- the archives of the accepted regions

Files that already exist locally are skipped unless --overwrite is given.
A year whose layout is not recognized is reported and skipped; any failed
request or download stops the run.

Examples:
  # Mirror every year for the default regions
  acsmirror fetch

  # Only New York and the nation, 2019 and 2021
  acsmirror fetch --region NewYork --region UnitedStates --year 2019 --year 2021

  # Also fetch the table shells and write a Markdown report
  acsmirror fetch --shells --format markdown --report run.md`,
		Args: cobra.NoArgs,
		RunE: runFetchCmd,
	}

	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Root of the summary file tree")
	cmd.Flags().StringSliceP("region", "r", nil,
		"Accepted region, repeatable (default: every state, DC, Puerto Rico and the nation)")
	cmd.Flags().Bool("tracts-and-block-groups", false,
		"Also download the tract and block group archives")
	cmd.Flags().StringSliceP("year", "y", nil,
		"Only mirror this year, repeatable")
	cmd.Flags().StringSlice("doc-ext", nil,
		"Accepted documentation extension, repeatable (default: .pdf .txt .xls .xlsx .csv)")
	cmd.Flags().Bool("shells", false,
		"Also mirror the table shells tree")
	cmd.Flags().String("shells-url", config.DefaultShellsURL,
		"Root of the table shells tree used with --shells")
	addCrawlFlags(cmd)

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFetchFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
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

	shells, err := cmd.Flags().GetBool("shells")
	if err != nil {
		return err
	}

	steps := []pipeline.Step{pipeline.NewCrawlStep(c, cfg.BaseURL, cfg.OutputDir)}
	if shells {
		steps = append(steps, pipeline.NewShellsStep(c, cfg.ShellsURL, cfg.OutputDir))
	}
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(steps...)

	state, runErr := p.Execute(ctx)
	if err := writeSummaries(cmd, state.Summaries, cfg.Verbose); err != nil {
		return err
	}
	return runErr
}

// applyFetchFlags copies the fetch flags the user set onto cfg.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) error {
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}

	f := cmd.Flags()
	var err error
	if f.Changed("base-url") {
		if cfg.BaseURL, err = f.GetString("base-url"); err != nil {
			return err
		}
	}
	if f.Changed("region") {
		if cfg.Regions, err = f.GetStringSlice("region"); err != nil {
			return err
		}
	}
	if f.Changed("tracts-and-block-groups") {
		if cfg.TractsAndBlockGroups, err = f.GetBool("tracts-and-block-groups"); err != nil {
			return err
		}
	}
	if f.Changed("year") {
		if cfg.Years, err = f.GetStringSlice("year"); err != nil {
			return err
		}
	}
	if f.Changed("shells-url") {
		if cfg.ShellsURL, err = f.GetString("shells-url"); err != nil {
			return err
		}
	}
	if f.Changed("doc-ext") {
		if cfg.DocExtensions, err = f.GetStringSlice("doc-ext"); err != nil {
			return err
		}
	}
	return nil
}
