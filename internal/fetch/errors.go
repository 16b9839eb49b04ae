package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFetch matches every *FetchError through errors.Is.
	ErrFetch = errors.New("fetch failed")

	// ErrDisallowed is returned when robots.txt forbids fetching a URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// FetchError reports a transport failure or a non-success status for a
// listing page or a file request. Requests are never retried; the URL is
// kept so that the failure can be logged and the crawl resumed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
