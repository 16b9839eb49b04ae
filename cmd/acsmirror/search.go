package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/burst"
	"github.com/nao1215/acsmirror/internal/colsearch"
	"github.com/nao1215/acsmirror/internal/metadata"
)

// errBadRule is returned for a rule flag without COLUMN=PATTERN.
var errBadRule = errors.New("rule must be COLUMN=PATTERN")

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the combined column metadata",
		Long: `Search prints, as CSV, the metadata rows matching every rule.

A rule is COLUMN=PATTERN where PATTERN is a regular expression. In patterns
parentheses are literal and \( \) group, and {year} matches any four digit
year. -r rules ignore case, -R rules do not.

If the metadata file does not exist it is built from --top-dir first.

Examples:
  # Median household income columns in any year's dollars
  acsmirror search -r LONGCOLNAME "median household income.*({year} inflation"

  # Estimates only, summarized by year
  acsmirror search -e -y -r NAME "^Total$" -R TABLE "^B01"

  # Choose output columns
  acsmirror search -r TABLE "^B19013$" -c ACS_YEAR -c SHORTCOLNAME -c LONGCOLNAME`,
		Args: cobra.NoArgs,
		RunE: runSearchCmd,
	}

	cmd.Flags().StringArrayP("rule", "r", nil,
		"Case-insensitive rule COLUMN=PATTERN, repeatable")
	cmd.Flags().StringArrayP("case-rule", "R", nil,
		"Case-sensitive rule COLUMN=PATTERN, repeatable")
	cmd.Flags().BoolP("estimates", "e", false,
		"Only estimates, no margins of error")
	cmd.Flags().BoolP("years", "y", false,
		"Summarize matches by year-independent column name")
	cmd.Flags().StringSliceP("columns", "c", nil,
		"Output columns, repeatable")
	cmd.Flags().StringP("metadata", "m", defaultMetadataFile,
		"Combined metadata file")
	cmd.Flags().String("top-dir", burst.OutputDir,
		"Unpacked tree used to build a missing metadata file")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	rules, err := searchRules(cmd)
	if err != nil {
		return err
	}
	path, err := cmd.Flags().GetString("metadata")
	if err != nil {
		return err
	}
	topDir, err := cmd.Flags().GetString("top-dir")
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}
	if !exists {
		logger.Info("metadata file missing, assembling", "path", path, "from", topDir)
		ctx, stop := signalContext(cmd)
		defer stop()
		if _, err := metadata.NewAssembler(fs, metadata.WithLogger(logger)).AssembleTo(ctx, topDir, path); err != nil {
			return fmt.Errorf("failed to build %s: %w", path, err)
		}
	}

	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	table, err := colsearch.Load(f)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	matches, err := colsearch.Scan(table, rules)
	if err != nil {
		return err
	}
	logger.Debug("search finished", "rules", len(rules), "matches", len(matches))

	years, err := cmd.Flags().GetBool("years")
	if err != nil {
		return err
	}
	if years {
		return colsearch.WriteYearsSummary(cmd.OutOrStdout(), colsearch.SummarizeYears(matches))
	}

	header, err := cmd.Flags().GetStringSlice("columns")
	if err != nil {
		return err
	}
	if len(header) == 0 {
		header = colsearch.DefaultHeader
	}
	for _, col := range header {
		if !table.HasColumn(col) {
			return fmt.Errorf("%w: %s", colsearch.ErrUnknownColumn, col)
		}
	}
	return colsearch.WriteRecords(cmd.OutOrStdout(), header, matches)
}

// searchRules collects the rules in flag order: case-insensitive, then
// case-sensitive, then the estimate filter.
func searchRules(cmd *cobra.Command) ([]colsearch.Rule, error) {
	var rules []colsearch.Rule
	for _, flag := range []struct {
		name          string
		caseSensitive bool
	}{
		{"rule", false},
		{"case-rule", true},
	} {
		values, err := cmd.Flags().GetStringArray(flag.name)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			col, pattern, ok := strings.Cut(v, "=")
			if !ok || col == "" {
				return nil, fmt.Errorf("%w: %q", errBadRule, v)
			}
			rules = append(rules, colsearch.NewRule(col, pattern, flag.caseSensitive))
		}
	}

	estimates, err := cmd.Flags().GetBool("estimates")
	if err != nil {
		return nil, err
	}
	if estimates {
		rules = append(rules, colsearch.EstimateRule())
	}
	return rules, nil
}
