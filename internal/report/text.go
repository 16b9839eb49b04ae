package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/acsmirror/internal/model"
)

// ruleWidth is the width of the separator lines in text output.
const ruleWidth = 70

// TextWriter outputs a human-readable summary for terminal display.
type TextWriter struct {
	baseWriter

	// verbose lists every downloaded file.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose lists every downloaded file in addition to the totals.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a new TextWriter.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: baseWriter{output: output},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in text format.
func (w *TextWriter) Write(s *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeTotals(&sb, s)
	w.writeIssues(&sb, s)
	if w.verbose {
		w.writeDownloads(&sb, s)
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *TextWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("ACS MIRROR RUN\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run:      %s\n", s.Run.ID)
	fmt.Fprintf(sb, "Tree:     %s\n", s.Run.RootURL)
	fmt.Fprintf(sb, "Started:  %s\n", s.Run.Started.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:  %s\n", elapsed(s))
	if s.Run.Error != "" {
		fmt.Fprintf(sb, "Status:   %s - %s\n", strings.ToUpper(string(s.Run.Status)), s.Run.Error)
	} else {
		fmt.Fprintf(sb, "Status:   %s\n", strings.ToUpper(string(s.Run.Status)))
	}
	if len(s.Years) > 0 {
		fmt.Fprintf(sb, "Years:    %s\n", strings.Join(s.Years, " "))
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeTotals(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nTOTALS\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Listings fetched:   %s\n", count(s.Listings))
	fmt.Fprintf(sb, "  Directories made:   %s\n", count(s.DirsCreated))
	fmt.Fprintf(sb, "  Files downloaded:   %s (%s)\n", count(s.Downloaded), humanize.Bytes(uint64(max(s.Bytes, 0))))
	fmt.Fprintf(sb, "  Already present:    %s\n", count(s.Existing))
	fmt.Fprintf(sb, "  Entries ignored:    %s\n", count(s.Ignored))
	if s.Ambiguous > 0 {
		fmt.Fprintf(sb, "  Ambiguous regions:  %s\n", count(s.Ambiguous))
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeIssues(sb *strings.Builder, s *model.Summary) {
	if len(s.StructureIssues) == 0 {
		return
	}
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nSTRUCTURE ISSUES\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	for _, is := range s.StructureIssues {
		if is.Year != "" {
			fmt.Fprintf(sb, "  [!] %s: %s\n", is.Year, is.Message)
		} else {
			fmt.Fprintf(sb, "  [!] %s\n", is.Message)
		}
		fmt.Fprintf(sb, "      %s\n", is.URL)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeDownloads(sb *strings.Builder, s *model.Summary) {
	downloads := s.Downloads()
	if len(downloads) == 0 {
		return
	}
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nDOWNLOADED\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	for _, t := range downloads {
		fmt.Fprintf(sb, "  [+] %s (%s)\n", t.Path, humanize.Bytes(uint64(max(t.Bytes, 0))))
	}
	sb.WriteString("\n")
}
