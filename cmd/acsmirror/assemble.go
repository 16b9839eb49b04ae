package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/burst"
	"github.com/nao1215/acsmirror/internal/metadata"
	"github.com/nao1215/acsmirror/internal/pipeline"
)

// defaultMetadataFile is where assemble writes and search reads.
const defaultMetadataFile = "all_metadata.csv"

// NewAssembleCmd creates the assemble command.
func NewAssembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble [TOPDIR]",
		Short: "Combine table metadata files into one CSV",
		Long: `Assemble walks TOPDIR (default: acs) and writes one row per column of
every *_metadata.csv it finds, with the year, span and table taken from the
file name and the long column name split into its parts.

Examples:
  # Read ./acs and write all_metadata.csv
  acsmirror assemble

  # Read an unpacked tree elsewhere
  acsmirror assemble ./data/acs -o ./data/all_metadata.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAssembleCmd,
	}

	cmd.Flags().StringP("output", "o", defaultMetadataFile,
		"Output file path")

	return cmd
}

// runAssembleCmd executes the assemble command.
func runAssembleCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	topDir := burst.OutputDir
	if len(args) == 1 {
		topDir = args[0]
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, stop := signalContext(cmd)
	defer stop()

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewAssembleStep(metadata.NewAssembler(afero.NewOsFs(), metadata.WithLogger(logger)), topDir, output))
	state, err := p.Execute(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d column(s) from %d table(s) to %s\n",
		state.Assembly.Rows, state.Assembly.Files, output)
	return nil
}
