package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/acsmirror/internal/database"
	"github.com/nao1215/acsmirror/internal/model"
)

// censusServer serves a small summary file tree and a table shells tree.
type censusServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests map[string]int
}

func newCensusServer(t *testing.T) *censusServer {
	t.Helper()

	tree := map[string][]string{
		"/sf/":                    {"2013/"},
		"/sf/2013/":               {"documentation/", "data/"},
		"/sf/2013/documentation/": {"ACS_2013_SF_Tech_Doc.pdf", "index.php"},
		"/sf/2013/data/":          {"Alabama_All_Geographies.zip", "Wyoming_All_Geographies.zip"},
		"/shells/":                {"2013/"},
		"/shells/2013/":           {"B01001.xls", "readme.html"},
	}

	s := &censusServer{requests: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.mu.Unlock()

		if entries, ok := tree[r.URL.Path]; ok {
			fmt.Fprint(w, `<html><body><table>`)
			fmt.Fprint(w, `<tr><td><a href="../">Parent Directory</a></td></tr>`)
			for _, e := range entries {
				fmt.Fprintf(w, "<tr><td><a href=%q>%s</a></td></tr>", e, e)
			}
			fmt.Fprint(w, `</table></body></html>`)
			return
		}
		for _, ext := range []string{".zip", ".pdf", ".xls"} {
			if strings.HasSuffix(r.URL.Path, ext) {
				fmt.Fprintf(w, "payload %s", r.URL.Path)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *censusServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func TestFetchCmd(t *testing.T) {
	t.Parallel()

	srv := newCensusServer(t)
	outDir := t.TempDir()
	dbDir := t.TempDir()

	stdout, stderr, err := execute(t, "fetch",
		"--base-url", srv.URL+"/sf/",
		"-o", outDir,
		"--db-dir", dbDir,
		"-r", "Alabama",
		"--rate-limit", "0",
		"-f", "json",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}

	for _, rel := range []string{
		"2013/data/Alabama_All_Geographies.zip",
		"2013/documentation/ACS_2013_SF_Tech_Doc.pdf",
	} {
		if _, err := os.Stat(filepath.Join(outDir, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}
	if srv.count("/sf/2013/data/Wyoming_All_Geographies.zip") != 0 {
		t.Error("Wyoming archive must not be fetched")
	}

	var summary model.Summary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("expected a JSON report, got %q: %v", stdout, err)
	}
	if summary.Run.Status != model.RunStatusSucceeded || summary.Downloaded != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if !strings.Contains(stderr, "crawl started") {
		t.Errorf("expected logs on stderr, got %q", stderr)
	}

	t.Run("status lists the run", func(t *testing.T) {
		out, _, err := execute(t, "status", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, summary.Run.ID) || !strings.Contains(out, "succeeded") {
			t.Errorf("expected the run in the listing, got:\n%s", out)
		}
		if !strings.Contains(out, "DOWNLOADED") {
			t.Errorf("expected a header, got:\n%s", out)
		}
	})

	t.Run("status shows one run", func(t *testing.T) {
		out, _, err := execute(t, "status", summary.Run.ID, "--db-dir", dbDir, "-f", "markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "# ACS Mirror Run") || !strings.Contains(out, summary.Run.ID) {
			t.Errorf("expected a Markdown report, got:\n%s", out)
		}
		if !strings.Contains(out, "2013") {
			t.Errorf("expected the year, got:\n%s", out)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, _, err := execute(t, "status", "no-such-run", "--db-dir", dbDir)
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("second fetch downloads nothing", func(t *testing.T) {
		reportPath := filepath.Join(t.TempDir(), "reports", "run.md")
		out, _, err := execute(t, "fetch",
			"--base-url", srv.URL+"/sf/",
			"-o", outDir,
			"--no-manifest",
			"-r", "Alabama",
			"--rate-limit", "0",
			"-f", "markdown",
			"--report", reportPath,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if srv.count("/sf/2013/data/Alabama_All_Geographies.zip") != 1 {
			t.Error("existing archive must not be fetched again")
		}
		if !strings.Contains(out, "ACS MIRROR RUN") {
			t.Errorf("expected a text summary on stdout, got:\n%s", out)
		}
		md, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(md), "[!TIP]") {
			t.Errorf("expected an up to date note in the report, got:\n%s", md)
		}

		m, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer m.Close()
		runs, err := m.ListRuns(t.Context(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Errorf("expected --no-manifest to skip recording, got %d runs", len(runs))
		}
	})
}

func TestFetchWithShells(t *testing.T) {
	t.Parallel()

	srv := newCensusServer(t)
	outDir := t.TempDir()

	stdout, stderr, err := execute(t, "fetch",
		"--base-url", srv.URL+"/sf/",
		"-o", outDir,
		"--no-manifest",
		"-r", "Wyoming",
		"--rate-limit", "0",
		"--shells",
		"--shells-url", srv.URL+"/shells/",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	if strings.Count(stdout, "ACS MIRROR RUN") != 2 {
		t.Errorf("expected two summaries, got:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(outDir, "2013", "data", "Wyoming_All_Geographies.zip")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "table_shells", "2013", "B01001.xls")); err != nil {
		t.Error(err)
	}
}

func TestShellsCmd(t *testing.T) {
	t.Parallel()

	srv := newCensusServer(t)
	outDir := t.TempDir()

	_, stderr, err := execute(t, "shells",
		"--shells-url", srv.URL+"/shells/",
		"-o", outDir,
		"--no-manifest",
		"--rate-limit", "0",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, stderr)
	}
	if _, err := os.Stat(filepath.Join(outDir, "table_shells", "2013", "B01001.xls")); err != nil {
		t.Errorf("expected workbook: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "table_shells", "2013", "readme.html")); err == nil {
		t.Error("files with other extensions must not be downloaded")
	}
}

func TestFetchCmdErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown region", []string{"fetch", "-r", "Atlantis", "--no-manifest"}},
		{"bad year", []string{"fetch", "-y", "13", "--no-manifest"}},
		{"bad base URL", []string{"fetch", "--base-url", "ftp://example.com/", "--no-manifest"}},
		{"negative rate", []string{"fetch", "--rate-limit", "-1", "--no-manifest"}},
		{"unknown format", []string{"fetch", "-f", "yaml", "--no-manifest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := append(tt.args, "-o", t.TempDir())
			if _, _, err := execute(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFetchCmdFailedRun(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	stdout, _, err := execute(t, "fetch",
		"--base-url", srv.URL+"/sf/",
		"-o", t.TempDir(),
		"--no-manifest",
		"--rate-limit", "0",
	)
	if err == nil {
		t.Fatal("expected error for a missing root")
	}
	if !strings.Contains(stdout, "FAILED") {
		t.Errorf("expected the failed run to be reported, got:\n%s", stdout)
	}
}
