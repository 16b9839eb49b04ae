package report

import (
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/acsmirror/internal/model"
)

// maxURLWidth bounds URLs shown in Markdown tables.
const maxURLWidth = 80

// MarkdownWriter outputs summaries as a Markdown document, suitable for
// pasting into an issue or keeping next to the mirror.
type MarkdownWriter struct {
	baseWriter

	// chart adds a mermaid pie chart of the file outcomes.
	chart bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithChart adds a pie chart of downloaded, existing and ignored entries.
func WithChart() MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.chart = true
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: baseWriter{output: output},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeTotals(md, s)
	if w.chart {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
	w.writeIssues(md, s)
	w.writeYears(md, s)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("ACS Mirror Run")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.Run.ID + "`"},
			{"Tree", s.Run.RootURL},
			{"Started", s.Run.Started.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", elapsed(s)},
			{"Status", string(s.Run.Status)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, s *model.Summary) {
	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Listings fetched", count(s.Listings)},
			{"Directories created", count(s.DirsCreated)},
			{"Files downloaded", count(s.Downloaded)},
			{"Bytes downloaded", humanize.Bytes(uint64(max(s.Bytes, 0)))},
			{"Already present", count(s.Existing)},
			{"Entries ignored", count(s.Ignored)},
			{"Ambiguous regions", count(s.Ambiguous)},
			{"Structure issues", count(len(s.StructureIssues))},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Listing Entries"),
		piechart.WithShowData(true),
	)
	if s.Downloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(s.Downloaded))
	}
	if s.Existing > 0 {
		chart.LabelAndIntValue("Existing", uint64(s.Existing))
	}
	if s.Ignored > 0 {
		chart.LabelAndIntValue("Ignored", uint64(s.Ignored))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Summary) {
	switch {
	case s.Run.Status == model.RunStatusFailed:
		md.Cautionf("The run failed and the mirror is incomplete: %s", s.Run.Error)
	case s.Run.Status == model.RunStatusCanceled:
		md.Warningf("The run was canceled. Run it again to resume.")
	case len(s.StructureIssues) > 0:
		md.Warningf("%d part(s) of the remote tree did not have the expected layout and were skipped.",
			len(s.StructureIssues))
	case s.Downloaded == 0:
		md.Tip("The mirror was already up to date.")
	default:
		md.Note("The mirror is complete.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, s *model.Summary) {
	if len(s.StructureIssues) == 0 {
		return
	}
	md.H2("Structure Issues")
	md.PlainText("")

	rows := make([][]string, 0, len(s.StructureIssues))
	for _, is := range s.StructureIssues {
		rows = append(rows, []string{is.Year, is.Message, "`" + truncateString(is.URL, maxURLWidth) + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Year", "Problem", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeYears(md *markdown.Markdown, s *model.Summary) {
	if len(s.Years) == 0 {
		return
	}
	md.H2("Years")
	md.PlainText("")
	md.BulletList(s.Years...)
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Mirrored from %s*", strings.TrimSuffix(s.Run.RootURL, "/"))
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
