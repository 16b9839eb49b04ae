package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/acsmirror/internal/fetch"
)

// DefaultMaxBodySize bounds how much of a listing page is read.
// The largest documentation directories are well under 1MB of HTML.
const DefaultMaxBodySize = 8 * 1024 * 1024

// Getter retrieves a URL and returns a successful response.
// *fetch.Client satisfies it; its failures are already *fetch.FetchError.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Parser fetches directory pages and extracts their links.
type Parser struct {
	client       Getter
	logger       *slog.Logger
	largestTable bool
	maxBodySize  int64
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLargestTable relaxes the single-table requirement: when a page has
// several tables, the one holding the most links is used. Pages with no
// table, no linked table, or a tie for the largest still fail.
func WithLargestTable() ParserOption {
	return func(p *Parser) {
		p.largestTable = true
	}
}

// WithParserLogger sets a custom logger.
func WithParserLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithMaxBodySize limits the number of bytes read from a listing page.
func WithMaxBodySize(n int64) ParserOption {
	return func(p *Parser) {
		p.maxBodySize = n
	}
}

// NewParser creates a Parser that fetches pages through client.
func NewParser(client Getter, opts ...ParserOption) *Parser {
	p := &Parser{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Links fetches the page at url and returns its links. With
// restrictToTable set, only anchors inside the listing table are returned.
//
// The body is decoded to UTF-8 using the Content-Type charset or the
// page's meta tag. Transport problems, non-2xx responses and pages over
// the body size limit are returned as *fetch.FetchError; an unexpected number of tables as *StructureError.
func (p *Parser) Links(ctx context.Context, url string, restrictToTable bool) (Listing, error) {
	resp, err := p.client.Get(ctx, url)
	if err != nil {
		if errors.Is(err, fetch.ErrFetch) {
			return nil, err
		}
		return nil, &fetch.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize+1))
	if err != nil {
		return nil, &fetch.FetchError{URL: url, Err: err}
	}
	if int64(len(raw)) > p.maxBodySize {
		return nil, &fetch.FetchError{URL: url, Err: fmt.Errorf("%w: more than %d bytes", ErrTooLarge, p.maxBodySize)}
	}

	body, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &fetch.FetchError{URL: url, Err: fmt.Errorf("decode listing: %w", err)}
	}

	links, err := Parse(body, restrictToTable, p.largestTable)
	if err != nil {
		var se *StructureError
		if errors.As(err, &se) {
			se.URL = url
			return nil, se
		}
		return nil, &fetch.FetchError{URL: url, Err: err}
	}

	p.logger.Debug("fetched listing", "url", url, "links", len(links))
	return links, nil
}

// Parse extracts links from an HTML document.
// Only anchors with an href attribute are considered. A label with no
// text becomes the empty string.
func Parse(r io.Reader, restrictToTable, largestTable bool) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	scope := doc.Selection
	if restrictToTable {
		scope, err = listingTable(doc, largestTable)
		if err != nil {
			return nil, err
		}
	}

	links := make(Listing)
	scope.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		links[href] = NormalizeLabel(a.Text())
	})
	return links, nil
}

// listingTable selects the table that holds the directory listing.
func listingTable(doc *goquery.Document, largest bool) (*goquery.Selection, error) {
	tables := doc.Find("table")
	switch {
	case tables.Length() == 0:
		return nil, &StructureError{Reason: "no listing table"}
	case tables.Length() == 1:
		return tables, nil
	case !largest:
		return nil, &StructureError{Reason: fmt.Sprintf("expected one listing table, found %d", tables.Length())}
	}

	best, bestCount, runnerUp := -1, 0, 0
	tables.Each(func(i int, t *goquery.Selection) {
		n := t.Find("a[href]").Length()
		switch {
		case n > bestCount:
			runnerUp = bestCount
			best, bestCount = i, n
		case n > runnerUp:
			runnerUp = n
		}
	})

	if bestCount == 0 {
		return nil, &StructureError{Reason: fmt.Sprintf("none of %d tables contains links", tables.Length())}
	}
	if bestCount == runnerUp {
		return nil, &StructureError{Reason: fmt.Sprintf("ambiguous listing: two tables with %d links", bestCount)}
	}
	return tables.Eq(best), nil
}
