package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nao1215/acsmirror/internal/config"
	"github.com/nao1215/acsmirror/internal/crawler"
	"github.com/nao1215/acsmirror/internal/database"
	"github.com/nao1215/acsmirror/internal/fetch"
	"github.com/nao1215/acsmirror/internal/listing"
	"github.com/nao1215/acsmirror/internal/log"
	"github.com/nao1215/acsmirror/internal/model"
	"github.com/nao1215/acsmirror/internal/report"
	"github.com/nao1215/acsmirror/internal/transfer"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getStringFlag reads a string flag that may be defined on the root.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, _ = cmd.Root().PersistentFlags().GetString(name) //nolint:errcheck // missing flag reads as ""
	}
	return v
}

// loadConfig builds the configuration from defaults, the configuration
// file, .env, ACSMIRROR_* variables and the global flags. Command specific
// flags are applied by the caller, which then validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = getStringFlag(cmd, "config")

	// An explicitly named file must exist; otherwise the defaults are used
	// when no file is found.
	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := cf.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// setupLogger creates the process logger and installs it as the default.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs, _ = cmd.Root().PersistentFlags().GetBool("log-json") //nolint:errcheck // missing flag reads as false
	}

	var logger *slog.Logger
	if jsonLogs {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// addCrawlFlags registers the flags shared by the commands that crawl.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Local directory the mirror is written under")
	cmd.Flags().Bool("overwrite", false,
		"Download files again even if they already exist locally")
	cmd.Flags().Float64("rate-limit", config.DefaultRateLimit,
		"Maximum requests per second (0 disables the limit)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request, including the download")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("robots", false,
		"Honor the server's robots.txt")
	cmd.Flags().Bool("largest-table", false,
		"Accept listing pages with several tables by using the largest one")
	cmd.Flags().String("db-dir", "",
		"Directory of the transfer manifest (default: XDG data directory)")
	cmd.Flags().Bool("no-manifest", false,
		"Do not record the run in the transfer manifest")

	addReportFlags(cmd)
}

// addReportFlags registers the flags choosing how a run is reported.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", string(report.FormatText),
		"Report format: text, json or markdown")
	cmd.Flags().String("report", "",
		"Write the report to this file and print a text summary")
	cmd.Flags().Bool("chart", false,
		"Add a chart to Markdown reports")
}

// applyCrawlFlags copies the crawl flags the user set onto cfg.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	if f.Changed("output-dir") {
		if cfg.OutputDir, err = f.GetString("output-dir"); err != nil {
			return err
		}
	}
	if f.Changed("overwrite") {
		if cfg.Overwrite, err = f.GetBool("overwrite"); err != nil {
			return err
		}
	}
	if f.Changed("rate-limit") {
		if cfg.RateLimit, err = f.GetFloat64("rate-limit"); err != nil {
			return err
		}
	}
	if f.Changed("timeout") {
		if cfg.Timeout, err = f.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if f.Changed("user-agent") {
		if cfg.UserAgent, err = f.GetString("user-agent"); err != nil {
			return err
		}
	}
	if f.Changed("robots") {
		if cfg.RespectRobots, err = f.GetBool("robots"); err != nil {
			return err
		}
	}
	if f.Changed("db-dir") {
		if cfg.DBDir, err = f.GetString("db-dir"); err != nil {
			return err
		}
	}
	noManifest, err := f.GetBool("no-manifest")
	if err != nil {
		return err
	}
	if noManifest {
		cfg.DBDir = ""
	}
	return nil
}

// newCrawler wires the fetch client, listing parser, transferer and
// manifest into a crawler. The returned function closes the manifest.
func newCrawler(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*crawler.Crawler, func(), error) {
	client := fetch.New(
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithRateLimit(cfg.RateLimit),
		fetch.WithRobots(cfg.RespectRobots),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithLogger(logger),
	)

	parserOpts := []listing.ParserOption{listing.WithParserLogger(logger)}
	largest, err := cmd.Flags().GetBool("largest-table")
	if err != nil {
		return nil, nil, err
	}
	if largest {
		parserOpts = append(parserOpts, listing.WithLargestTable())
	}

	fs := afero.NewOsFs()
	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithOverwrite(cfg.Overwrite),
	}

	closer := func() {}
	if cfg.DBDir != "" {
		manifest, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open manifest: %w", err)
		}
		logger.Debug("manifest opened", "path", manifest.Path())
		opts = append(opts, crawler.WithRecorder(manifest))
		closer = func() {
			if err := manifest.Close(); err != nil {
				logger.Error("failed to close manifest", "error", err)
			}
		}
	}

	c := crawler.New(fs,
		listing.NewParser(client, parserOpts...),
		transfer.New(fs, client, transfer.WithLogger(logger)),
		cfg.Settings(),
		opts...,
	)
	return c, closer, nil
}

// newReportWriter returns the writer for format.
func newReportWriter(format string, out io.Writer, verbose, chart bool) (report.Writer, error) {
	switch report.Format(format) {
	case report.FormatText:
		return report.NewTextWriter(out, report.WithVerbose(verbose)), nil
	case report.FormatJSON:
		opts := []report.JSONWriterOption{report.WithPrettyPrint()}
		if verbose {
			opts = append(opts, report.WithTransfers())
		}
		return report.NewJSONWriter(out, opts...), nil
	case report.FormatMarkdown:
		var opts []report.MarkdownWriterOption
		if chart {
			opts = append(opts, report.WithChart())
		}
		return report.NewMarkdownWriter(out, opts...), nil
	default:
		return report.NewWriter(report.Format(format), out)
	}
}

// checkReportFlags rejects an unknown --format before any work is done.
func checkReportFlags(cmd *cobra.Command) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	_, err = newReportWriter(format, io.Discard, false, false)
	return err
}

// writeSummaries reports every summary as selected by the report flags.
// With --report the chosen format goes to the file and a text summary to
// stdout.
func writeSummaries(cmd *cobra.Command, summaries []*model.Summary, verbose bool) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	path, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	chart, err := cmd.Flags().GetBool("chart")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path == "" {
		w, err := newReportWriter(format, out, verbose, chart)
		if err != nil {
			return err
		}
		return writeAll(w, summaries)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-provided report path
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	fileWriter, err := newReportWriter(format, f, verbose, chart)
	if err != nil {
		return err
	}
	return writeAll(report.NewMultiWriter(fileWriter, report.NewTextWriter(out)), summaries)
}

func writeAll(w report.Writer, summaries []*model.Summary) error {
	for _, s := range summaries {
		if _, err := w.Write(s); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}
