package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/nao1215/acsmirror/internal/config"
	"github.com/nao1215/acsmirror/internal/fetch"
	"github.com/nao1215/acsmirror/internal/listing"
	"github.com/nao1215/acsmirror/internal/model"
	"github.com/nao1215/acsmirror/internal/transfer"
)

const siteRoot = "http://census.test/sf/"

// fakeSite serves listings and files from memory. It implements Lister
// and transfer.Getter.
type fakeSite struct {
	mu       sync.Mutex
	listings map[string]listing.Listing
	listErrs map[string]error
	files    map[string]string
	listed   []string
	fetched  []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		listings: make(map[string]listing.Listing),
		listErrs: make(map[string]error),
		files:    make(map[string]string),
	}
}

// dir registers a listing at siteRoot+path whose hrefs equal the labels.
// Entries without a trailing slash are served as files.
func (s *fakeSite) dir(path string, entries ...string) {
	s.listings[siteRoot+path] = labels(entries...)
	for _, e := range entries {
		if !strings.HasSuffix(e, "/") {
			s.files[siteRoot+path+e] = "content of " + path + e
		}
	}
}

func (s *fakeSite) Links(_ context.Context, url string, _ bool) (listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed = append(s.listed, url)
	if err, ok := s.listErrs[url]; ok {
		return nil, err
	}
	l, ok := s.listings[url]
	if !ok {
		return nil, &fetch.FetchError{URL: url, Err: &fetch.StatusError{StatusCode: http.StatusNotFound}}
	}
	return l, nil
}

func (s *fakeSite) Get(_ context.Context, url string) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, url)
	body, ok := s.files[url]
	if !ok {
		return nil, &fetch.FetchError{URL: url, Err: &fetch.StatusError{StatusCode: http.StatusNotFound}}
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}, nil
}

func (s *fakeSite) wasListed(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.listed, url)
}

func newTestCrawler(fs afero.Fs, site *fakeSite, regions []string, opts ...Option) *Crawler {
	settings := config.NewSettings(regions, false, config.DefaultDocExtensions())
	return New(fs, site, transfer.New(fs, site), settings, opts...)
}

// files returns every regular file under root, sorted.
func files(t *testing.T, fs afero.Fs, root string) []string {
	t.Helper()
	var out []string
	err := afero.Walk(fs, root, func(path string, info afero.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			out = append(out, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	sort.Strings(out)
	return out
}

func TestRunPre2010Layouts(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.dir("", "2007/", "2009/")
	site.dir("2007/", "documentation/", "data/")
	site.dir("2007/documentation/", "ACS_2007_SF_Tech_Doc.pdf", "readme.html")
	site.dir("2007/data/", "1_year/", "3_year_seq_by_state/")
	site.dir("2007/data/1_year/", "Alabama/", "Wyoming/", "UnitedStates/")
	site.dir("2007/data/1_year/Alabama/", "all_al.zip", "g20071al.txt", "sequence.xls")
	site.dir("2009/", "documentation/", "data/")
	site.dir("2009/documentation/")
	site.dir("2009/data/", "1_year_by_state/", "2009_1yr_Summary_FileTemplates.zip")
	site.dir("2009/data/1_year_by_state/", "Alabama.zip", "Wyoming.zip")

	fs := afero.NewMemMapFs()
	c := newTestCrawler(fs, site, []string{"Alabama"})
	summary, err := c.Run(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"out/2007/data/1_year/Alabama/all_al.zip",
		"out/2007/data/1_year/Alabama/g20071al.txt",
		"out/2007/documentation/ACS_2007_SF_Tech_Doc.pdf",
		"out/2009/data/1_year_by_state/Alabama.zip",
		"out/2009/data/2009_1yr_Summary_FileTemplates.zip",
	}
	if got := files(t, fs, "out"); !slices.Equal(got, want) {
		t.Errorf("files = %v\nwant %v", got, want)
	}

	if site.wasListed(siteRoot + "2007/data/3_year_seq_by_state/") {
		t.Error("sequence grouping must not be listed")
	}
	if site.wasListed(siteRoot + "2007/data/1_year/Wyoming/") {
		t.Error("unselected region must not be listed")
	}
	if ok, _ := afero.DirExists(fs, "out/2007/data/1_year/Wyoming"); ok {
		t.Error("no directory should be created for an unselected region")
	}

	if summary.Downloaded != len(want) {
		t.Errorf("Downloaded = %d, want %d", summary.Downloaded, len(want))
	}
	if !slices.Equal(summary.Years, []string{"2007", "2009"}) {
		t.Errorf("Years = %v", summary.Years)
	}
	if summary.Run.Status != model.RunStatusSucceeded {
		t.Errorf("Status = %v", summary.Run.Status)
	}
}

func TestRunIdempotent(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.dir("", "2013/")
	site.dir("2013/", "documentation/", "data/")
	site.dir("2013/documentation/", "user_guide/", "ACS_SF_Tech_Doc.pdf")
	site.dir("2013/documentation/user_guide/", "table_list.xlsx")
	site.dir("2013/data/", "5_year_by_state/")
	site.dir("2013/data/5_year_by_state/", "Alabama_All_Geographies_Not_Tracts_Block_Groups.zip")

	fs := afero.NewMemMapFs()
	c := newTestCrawler(fs, site, []string{"Alabama"})

	first, err := c.Run(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Downloaded != 3 {
		t.Fatalf("first run Downloaded = %d, want 3", first.Downloaded)
	}
	before := files(t, fs, "out")
	fetchedBefore := len(site.fetched)

	second, err := c.Run(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Downloaded != 0 || second.Existing != 3 {
		t.Errorf("second run Downloaded = %d Existing = %d, want 0 and 3", second.Downloaded, second.Existing)
	}
	if second.DirsCreated != 0 {
		t.Errorf("second run created %d directories", second.DirsCreated)
	}
	if len(site.fetched) != fetchedBefore {
		t.Errorf("second run fetched %d files", len(site.fetched)-fetchedBefore)
	}
	if after := files(t, fs, "out"); !slices.Equal(before, after) {
		t.Errorf("tree changed: %v -> %v", before, after)
	}
	if first.Run.ID == second.Run.ID {
		t.Error("runs should have distinct IDs")
	}
}

func TestRunOverwrite(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.dir("", "2013/")
	site.dir("2013/", "documentation/", "data/")
	site.dir("2013/documentation/", "a.pdf")
	site.dir("2013/data/")

	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("out/2013/documentation", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "out/2013/documentation/a.pdf", []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestCrawler(fs, site, []string{"Alabama"}, WithOverwrite(true))
	summary, err := c.Run(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1", summary.Downloaded)
	}
	got, err := afero.ReadFile(fs, "out/2013/documentation/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content of 2013/documentation/a.pdf" {
		t.Errorf("file not replaced: %q", got)
	}
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *fakeSite {
		site := newFakeSite()
		site.dir("", "2014/", "2013/")
		for _, y := range []string{"2013/", "2014/"} {
			site.dir(y, "data/", "documentation/")
			site.dir(y+"documentation/", "z.pdf", "b.csv", "a.txt", "m.xls")
			site.dir(y+"data/", "Ohio_All_Geographies.zip", "Alabama_All_Geographies.zip", "Texas_All_Geographies.zip")
		}
		return site
	}

	regions := []string{"Alabama", "Ohio", "Texas"}
	var orders [][]string
	for range 3 {
		site := build()
		c := newTestCrawler(afero.NewMemMapFs(), site, regions)
		if _, err := c.Run(context.Background(), siteRoot, "out"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		orders = append(orders, site.fetched)
	}

	for i := 1; i < len(orders); i++ {
		if !slices.Equal(orders[0], orders[i]) {
			t.Fatalf("download order differs between runs:\n%v\n%v", orders[0], orders[i])
		}
	}
	if !strings.HasSuffix(orders[0][0], "2013/documentation/a.txt") {
		t.Errorf("first download = %s, want 2013 documentation a.txt", orders[0][0])
	}
	if !strings.HasSuffix(orders[0][4], "2013/data/Alabama_All_Geographies.zip") {
		t.Errorf("fifth download = %s", orders[0][4])
	}
}

func TestRunStructureIssues(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.dir("", "2011/", "2012/", "2013/")
	// 2011: the documentation listing trips the table check, so its data
	// branch is abandoned too.
	site.dir("2011/", "documentation/", "data/")
	site.listErrs[siteRoot+"2011/documentation/"] = &listing.StructureError{URL: siteRoot + "2011/documentation/", Reason: "found 2 tables"}
	site.dir("2011/data/", "Alabama_All_Geographies.zip")
	// 2012: no data branch.
	site.dir("2012/", "documentation/")
	// 2013: fine.
	site.dir("2013/", "documentation/", "data/")
	site.dir("2013/documentation/")
	site.dir("2013/data/", "Alabama_All_Geographies.zip")

	fs := afero.NewMemMapFs()
	rec := &fakeRecorder{}
	c := newTestCrawler(fs, site, []string{"Alabama"}, WithRecorder(rec))
	summary, err := c.Run(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("structure issues must not fail the run: %v", err)
	}

	if len(summary.StructureIssues) != 2 {
		t.Fatalf("StructureIssues = %+v, want 2", summary.StructureIssues)
	}
	if summary.StructureIssues[0].Year != "2011" || summary.StructureIssues[1].Year != "2012" {
		t.Errorf("unexpected issue years: %+v", summary.StructureIssues)
	}
	if site.wasListed(siteRoot + "2011/data/") {
		t.Error("abandoned year should not continue into its data branch")
	}
	if got := files(t, fs, "out"); !slices.Equal(got, []string{"out/2013/data/Alabama_All_Geographies.zip"}) {
		t.Errorf("files = %v", got)
	}
	if len(rec.issues) != 2 {
		t.Errorf("recorder saw %d issues, want 2", len(rec.issues))
	}
}

func TestRunErrorsAbort(t *testing.T) {
	t.Parallel()

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite()
		site.dir("", "2012/", "2013/")
		site.dir("2012/", "documentation/", "data/")
		site.dir("2012/documentation/")
		// 2012/data/ is missing and answers 404.
		site.dir("2013/", "documentation/", "data/")

		rec := &fakeRecorder{}
		c := newTestCrawler(afero.NewMemMapFs(), site, []string{"Alabama"}, WithRecorder(rec))
		summary, err := c.Run(context.Background(), siteRoot, "out")
		if !errors.Is(err, fetch.ErrFetch) {
			t.Fatalf("expected fetch error, got %v", err)
		}
		if site.wasListed(siteRoot + "2013/") {
			t.Error("crawl should stop at the first fetch error")
		}
		if summary.Run.Status != model.RunStatusFailed {
			t.Errorf("Status = %v", summary.Run.Status)
		}
		if rec.finished.Status != model.RunStatusFailed || rec.finished.Error == "" {
			t.Errorf("recorder saw %+v", rec.finished)
		}
	})

	t.Run("transfer error leaves only the part file", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite()
		site.dir("", "2013/")
		site.dir("2013/", "documentation/", "data/")
		site.dir("2013/documentation/")
		site.dir("2013/data/", "Alabama_All_Geographies.zip")

		fs := afero.NewMemMapFs()
		saver := transfer.New(fs, truncatingGetter{})
		c := New(fs, site, saver, config.NewSettings([]string{"Alabama"}, false, nil))
		_, err := c.Run(context.Background(), siteRoot, "out")
		if !errors.Is(err, transfer.ErrTransfer) {
			t.Fatalf("expected transfer error, got %v", err)
		}
		want := []string{"out/2013/data/Alabama_All_Geographies.zip" + transfer.PartSuffix}
		if got := files(t, fs, "out"); !slices.Equal(got, want) {
			t.Errorf("files = %v, want %v", got, want)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite()
		site.dir("", "2013/")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := newTestCrawler(afero.NewMemMapFs(), site, []string{"Alabama"})
		summary, err := c.Run(ctx, siteRoot, "out")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if summary.Run.Status != model.RunStatusCanceled {
			t.Errorf("Status = %v", summary.Run.Status)
		}
		if len(site.listed) != 0 {
			t.Errorf("no listing should be fetched, got %v", site.listed)
		}
	})
}

func TestRunShells(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.dir("", "2012/", "2013/", "index.html")
	site.dir("2012/", "B01001.xls", "B01001.pdf")
	site.dir("2013/", "1_year/")
	site.dir("2013/1_year/", "B01001.xlsx")

	fs := afero.NewMemMapFs()
	c := newTestCrawler(fs, site, []string{"Alabama"})
	summary, err := c.RunShells(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"out/table_shells/2012/B01001.xls",
		"out/table_shells/2013/1_year/B01001.xlsx",
	}
	if got := files(t, fs, "out"); !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	if summary.Run.Kind != model.RunKindTableShells {
		t.Errorf("Kind = %v", summary.Run.Kind)
	}
	if !slices.Equal(summary.Years, []string{"2012", "2013"}) {
		t.Errorf("Years = %v", summary.Years)
	}
}

func TestRunRecorder(t *testing.T) {
	t.Parallel()

	site := newFakeSite()
	site.dir("", "2013/")
	site.dir("2013/", "documentation/", "data/")
	site.dir("2013/documentation/", "a.pdf")
	site.dir("2013/data/", "Alabama_All_Geographies.zip")

	rec := &fakeRecorder{}
	c := newTestCrawler(afero.NewMemMapFs(), site, []string{"Alabama"}, WithRecorder(rec))
	summary, err := c.Run(context.Background(), siteRoot, "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.begun.ID != summary.Run.ID || rec.begun.Status != model.RunStatusRunning {
		t.Errorf("BeginRun saw %+v", rec.begun)
	}
	if rec.finished.Status != model.RunStatusSucceeded {
		t.Errorf("FinishRun saw %+v", rec.finished)
	}
	if len(rec.transfers) != 2 {
		t.Fatalf("recorded %d transfers, want 2", len(rec.transfers))
	}
	state := rec.transfers[1]
	if state.Role != "state" || state.Year != "2013" || state.Digest == "" || state.Bytes == 0 {
		t.Errorf("unexpected transfer record %+v", state)
	}

	t.Run("recorder failure ends the run", func(t *testing.T) {
		t.Parallel()

		failing := &fakeRecorder{transferErr: errors.New("disk full")}
		c := newTestCrawler(afero.NewMemMapFs(), site, []string{"Alabama"}, WithRecorder(failing))
		_, err := c.Run(context.Background(), siteRoot, "out")
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("expected recorder error, got %v", err)
		}
	})
}

// TestRunOverHTTP crawls a synthetic census tree served over HTTP with the
// production fetch, listing and transfer stack.
func TestRunOverHTTP(t *testing.T) {
	t.Parallel()

	tree := map[string][]string{
		"/sf/":                    {"2013/"},
		"/sf/2013/":               {"documentation/", "data/"},
		"/sf/2013/documentation/": {"ACS_2013_SF_Tech_Doc.pdf", "index.php"},
		"/sf/2013/data/":          {"Alabama_All_Geographies.zip", "Wyoming_All_Geographies.zip"},
	}

	var mu sync.Mutex
	requests := map[string]int{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests[r.URL.Path]++
		mu.Unlock()

		if entries, ok := tree[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><div class="header"><a href="/">Census</a></div><table>`)
			fmt.Fprint(w, `<tr><th><a href="?C=N;O=D">Name</a></th></tr>`)
			fmt.Fprint(w, `<tr><td><a href="/sf/">Parent Directory</a></td></tr>`)
			for _, e := range entries {
				fmt.Fprintf(w, "<tr><td><a href=%q>\n  %s </a></td></tr>", e, e)
			}
			fmt.Fprint(w, `</table><div class="footer"><a href="/privacy">Privacy</a></div></body></html>`)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".zip") || strings.HasSuffix(r.URL.Path, ".pdf") {
			fmt.Fprintf(w, "payload %s", r.URL.Path)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := fetch.New(fetch.WithHTTPClient(srv.Client()))
	fs := afero.NewMemMapFs()
	settings := config.NewSettings([]string{"Alabama"}, false, config.DefaultDocExtensions())
	c := New(fs, listing.NewParser(client), transfer.New(fs, client), settings)

	summary, err := c.Run(context.Background(), srv.URL+"/sf/", "out")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"out/2013/data/Alabama_All_Geographies.zip",
		"out/2013/documentation/ACS_2013_SF_Tech_Doc.pdf",
	}
	if got := files(t, fs, "out"); !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	body, err := afero.ReadFile(fs, "out/2013/data/Alabama_All_Geographies.zip")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "payload /sf/2013/data/Alabama_All_Geographies.zip" {
		t.Errorf("unexpected content %q", body)
	}

	mu.Lock()
	if requests["/sf/2013/data/Wyoming_All_Geographies.zip"] != 0 {
		t.Error("Wyoming archive must not be fetched")
	}
	mu.Unlock()

	if summary.Downloaded != 2 {
		t.Errorf("Downloaded = %d, want 2", summary.Downloaded)
	}

	second, err := c.Run(context.Background(), srv.URL+"/sf/", "out")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Downloaded != 0 {
		t.Errorf("second run Downloaded = %d, want 0", second.Downloaded)
	}
	mu.Lock()
	defer mu.Unlock()
	if requests["/sf/2013/data/Alabama_All_Geographies.zip"] != 1 {
		t.Errorf("Alabama archive fetched %d times, want 1", requests["/sf/2013/data/Alabama_All_Geographies.zip"])
	}
}

// truncatingGetter announces more bytes than it sends.
type truncatingGetter struct{}

func (truncatingGetter) Get(_ context.Context, _ string) (*http.Response, error) {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Body:          io.NopCloser(strings.NewReader("short")),
		ContentLength: 1000,
	}, nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	begun       model.Run
	finished    model.Run
	transfers   []model.Transfer
	issues      []model.StructureIssue
	transferErr error
}

func (r *fakeRecorder) BeginRun(_ context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begun = run
	return nil
}

func (r *fakeRecorder) RecordTransfer(_ context.Context, _ string, t model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transferErr != nil {
		return r.transferErr
	}
	r.transfers = append(r.transfers, t)
	return nil
}

func (r *fakeRecorder) RecordStructureIssue(_ context.Context, _ string, issue model.StructureIssue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issues = append(r.issues, issue)
	return nil
}

func (r *fakeRecorder) FinishRun(_ context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = run
	return nil
}
