package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/burst"
	"github.com/nao1215/acsmirror/internal/config"
	"github.com/nao1215/acsmirror/internal/metadata"
	"github.com/nao1215/acsmirror/internal/pipeline"
)

// NewBurstCmd creates the burst command.
func NewBurstCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burst TOPDIR RAWDIR",
		Short: "Unpack downloaded table archives",
		Long: `Burst unpacks every acs_<places|non_places>_<year>_<range>.zip found below
RAWDIR into TOPDIR/acs/<type>/<year>/.

An existing TOPDIR/acs is renamed with a timestamp suffix first, so every
run starts from a clean tree. Archives containing absolute paths or ".."
are rejected before anything is written.

Examples:
  # Unpack archives from ./raw into ./data/acs
  acsmirror burst ./data ./raw

  # Unpack, then build the combined metadata file
  acsmirror burst ./data ./raw --assemble all_metadata.csv`,
		Args: cobra.ExactArgs(2),
		RunE: runBurstCmd,
	}

	cmd.Flags().IntP("jobs", "j", config.DefaultJobs,
		"Number of type/year directories unpacked at the same time")
	cmd.Flags().String("assemble", "",
		"After unpacking, write the combined metadata file to this path")

	return cmd
}

// runBurstCmd executes the burst command.
func runBurstCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		if cfg.Jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
			return err
		}
	}
	if cfg.Jobs < 1 {
		return fmt.Errorf("configuration error: jobs must be at least 1, got %d", cfg.Jobs)
	}
	assembleTo, err := cmd.Flags().GetString("assemble")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, stop := signalContext(cmd)
	defer stop()

	topDir, rawDir := args[0], args[1]
	fs := afero.NewOsFs()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewBurstStep(burst.New(fs, burst.WithLogger(logger), burst.WithJobs(cfg.Jobs)), topDir, rawDir))
	if assembleTo != "" {
		p.AddStep(pipeline.NewAssembleAfterBurstStep(metadata.NewAssembler(fs, metadata.WithLogger(logger)), topDir, assembleTo))
	}

	state, err := p.Execute(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if state.Burst.MovedAside != "" {
		fmt.Fprintf(out, "Moved previous output to %s\n", state.Burst.MovedAside)
	}
	fmt.Fprintf(out, "Unpacked %d archive(s), %d file(s), %s into %s\n",
		state.Burst.Archives, state.Burst.Files, humanize.Bytes(uint64(max(state.Burst.Bytes, 0))),
		filepath.Join(topDir, burst.OutputDir))
	if state.Assembly != nil {
		fmt.Fprintf(out, "Wrote %d column(s) from %d table(s) to %s\n",
			state.Assembly.Rows, state.Assembly.Files, assembleTo)
	}
	return nil
}
