package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/acsmirror/internal/model"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *model.Summary {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &model.Summary{
		Run: model.Run{
			ID:       "0b0e2c1c-5f2d-4b36-9a0c-6f1f7f1c9d11",
			Kind:     model.RunKindSummaryFile,
			RootURL:  "https://www2.census.gov/programs-surveys/acs/summary_file/",
			Started:  started,
			Finished: started.Add(90 * time.Second),
			Status:   model.RunStatusSucceeded,
		},
		Years:       []string{"2009", "2010"},
		Listings:    1234,
		DirsCreated: 12,
		Ignored:     40,
	}
	s.AddTransfer(model.Transfer{
		URL:   "https://www2.census.gov/programs-surveys/acs/summary_file/2009/data/Alaska_All_Geographies.zip",
		Path:  "acs_sf_downloads/2009/data/Alaska/Alaska_All_Geographies.zip",
		Role:  "state",
		Year:  "2009",
		Bytes: 2 * 1000 * 1000,
	})
	s.AddTransfer(model.Transfer{
		URL:     "https://www2.census.gov/programs-surveys/acs/summary_file/2009/documentation/readme.txt",
		Path:    "acs_sf_downloads/2009/documentation/readme.txt",
		Role:    "other_file",
		Year:    "2009",
		Skipped: true,
	})
	return s
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "*report.TextWriter"},
		{"", "*report.TextWriter"},
		{FormatJSON, "*report.JSONWriter"},
		{FormatMarkdown, "*report.MarkdownWriter"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()
			w, err := NewWriter(tt.format, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch w.(type) {
			case *TextWriter:
				if tt.want != "*report.TextWriter" {
					t.Errorf("got TextWriter, want %s", tt.want)
				}
			case *JSONWriter:
				if tt.want != "*report.JSONWriter" {
					t.Errorf("got JSONWriter, want %s", tt.want)
				}
			case *MarkdownWriter:
				if tt.want != "*report.MarkdownWriter" {
					t.Errorf("got MarkdownWriter, want %s", tt.want)
				}
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		if _, err := NewWriter("yaml", &bytes.Buffer{}); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"ACS MIRROR RUN",
			"SUCCEEDED",
			"Years:    2009 2010",
			"Listings fetched:   1,234",
			"Files downloaded:   1 (2.0 MB)",
			"Already present:    1",
			"Elapsed:  1m30s",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "STRUCTURE ISSUES") {
			t.Error("did not expect a structure issues section")
		}
		if strings.Contains(output, "DOWNLOADED") {
			t.Error("did not expect the download list without verbose")
		}
	})

	t.Run("lists structure issues", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.StructureIssues = append(s.StructureIssues, model.StructureIssue{
			URL:     "https://www2.census.gov/programs-surveys/acs/summary_file/2010/",
			Year:    "2010",
			Message: "found 2 documentation directories, want 1",
		})

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "STRUCTURE ISSUES") {
			t.Error("expected structure issues section")
		}
		if !strings.Contains(output, "[!] 2010: found 2 documentation directories, want 1") {
			t.Errorf("expected issue line, got:\n%s", output)
		}
	})

	t.Run("failed run shows error", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Run.Status = model.RunStatusFailed
		s.Run.Error = "connection reset"

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "FAILED - connection reset") {
			t.Errorf("expected failure status, got:\n%s", buf.String())
		}
	})

	t.Run("verbose lists downloads", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "[+] acs_sf_downloads/2009/data/Alaska/Alaska_All_Geographies.zip (2.0 MB)") {
			t.Errorf("expected download entry, got:\n%s", output)
		}
		if strings.Contains(output, "readme.txt") {
			t.Error("skipped files must not be listed as downloads")
		}
	})

	t.Run("in progress run has no elapsed time", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Run.Finished = time.Time{}

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Elapsed:  -") {
			t.Errorf("expected placeholder elapsed time, got:\n%s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON without transfers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["downloaded"] != float64(1) {
			t.Errorf("downloaded = %v, want 1", got["downloaded"])
		}
		if _, ok := got["transfers"]; ok {
			t.Error("did not expect transfers without WithTransfers")
		}
		if strings.Contains(buf.String(), "\n  ") {
			t.Error("expected compact output")
		}
	})

	t.Run("keeps the caller's summary intact", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		if _, err := NewJSONWriter(&bytes.Buffer{}).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Transfers) != 2 {
			t.Errorf("summary transfers = %d, want 2", len(s.Transfers))
		}
	})

	t.Run("with transfers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithTransfers()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got model.Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got.Transfers) != 2 {
			t.Errorf("transfers = %d, want 2", len(got.Transfers))
		}
		if got.Run.Status != model.RunStatusSucceeded {
			t.Errorf("status = %q", got.Run.Status)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"run\": {") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
		if !strings.HasSuffix(buf.String(), "}\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("", "\t")).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n\t\"run\"") {
			t.Errorf("expected tab indentation, got:\n%s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected a non-zero length")
		}

		output := buf.String()
		for _, want := range []string{
			"# ACS Mirror Run",
			"## Totals",
			"Files downloaded",
			"1,234",
			"2.0 MB",
			"## Years",
			"2010",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "mermaid") {
			t.Error("did not expect a chart without WithChart")
		}
	})

	t.Run("chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithChart()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "Downloaded") || !strings.Contains(output, "Ignored") {
			t.Errorf("expected chart labels, got:\n%s", output)
		}
	})

	tests := []struct {
		name   string
		modify func(*model.Summary)
		want   string
	}{
		{
			name: "failed run",
			modify: func(s *model.Summary) {
				s.Run.Status = model.RunStatusFailed
				s.Run.Error = "status 503"
			},
			want: "[!CAUTION]",
		},
		{
			name:   "canceled run",
			modify: func(s *model.Summary) { s.Run.Status = model.RunStatusCanceled },
			want:   "[!WARNING]",
		},
		{
			name: "structure issues",
			modify: func(s *model.Summary) {
				s.StructureIssues = []model.StructureIssue{{URL: "https://example.com/2011/", Year: "2011", Message: "no listing table"}}
			},
			want: "## Structure Issues",
		},
		{
			name: "up to date",
			modify: func(s *model.Summary) {
				s.Downloaded = 0
			},
			want: "[!TIP]",
		},
		{
			name:   "complete",
			modify: func(*model.Summary) {},
			want:   "[!NOTE]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := createTestSummary()
			tt.modify(s)
			var buf bytes.Buffer
			if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewTextWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestSummary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("n = %d, want %d", n, text.Len()+js.Len())
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriterStopsOnError(t *testing.T) {
	t.Parallel()

	var after bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(failingWriter{}), NewJSONWriter(&after))
	if _, err := mw.Write(createTestSummary()); err == nil {
		t.Fatal("expected error")
	}
	if after.Len() != 0 {
		t.Error("writers after a failure must not run")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"long", "abcdefghij", 8, "abcde..."},
		{"tiny limit", "abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
