package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for acsmirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acsmirror",
		Short: "Mirror the ACS summary file tree from the Census Bureau",
		Long: `acsmirror mirrors the American Community Survey summary file tree published
by the Census Bureau into a local directory.

Only the documentation, file templates and the archives of the configured
regions are downloaded. Files already present locally are left alone, so an
interrupted run can simply be started again.

Settings are read from .acsmirror (current or home directory) or
$XDG_CONFIG_HOME/acsmirror/config.yaml, then from ACSMIRROR_* environment
variables and a .env file, then from flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config", "",
		"Configuration file path (default: .acsmirror in current or home directory)")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewShellsCmd())
	cmd.AddCommand(NewBurstCmd())
	cmd.AddCommand(NewAssembleCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
