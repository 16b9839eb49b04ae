package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/acsmirror/internal/model"
)

// Writer defines the interface for crawl summary output.
// Implementations render a *model.Summary into a specific format.
type Writer interface {
	// Write renders the summary to the underlying output.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.Summary) (int, error)
}

// Format names an output format accepted by NewWriter.
type Format string

const (
	// FormatText is the plain text format for terminals.
	FormatText Format = "text"
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
	// FormatMarkdown is a GitHub flavored Markdown document.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// NewWriter returns the writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes the same summary to multiple writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a writer that outputs to all provided writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all writers.
// Returns the total bytes written and the first error encountered.
func (mw *MultiWriter) Write(summary *model.Summary) (int, error) {
	total := 0
	for _, w := range mw.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for all writers.
type baseWriter struct {
	output io.Writer
}

// printer formats counts with thousands separators.
var printer = message.NewPrinter(language.English)

// count renders n with thousands separators, e.g. 12,345.
func count(n int) string {
	return printer.Sprintf("%d", n)
}

// elapsed renders the run duration rounded to the second.
func elapsed(s *model.Summary) string {
	d := s.Elapsed()
	if d == 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
