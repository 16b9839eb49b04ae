package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benjaminestes/robots/v2"
	"golang.org/x/time/rate"
)

// Client performs GET requests against the remote tree.
// It is safe for concurrent use, although the crawler issues one request
// at a time.
type Client struct {
	httpClient    *http.Client
	userAgent     string
	limiter       *rate.Limiter
	respectRobots bool
	logger        *slog.Logger

	// robots caches one tester per robots.txt location.
	robots map[string]func(string) bool
	mu     sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimit allows at most perSecond requests per second.
// Zero or a negative value disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRobots makes the client honor robots.txt.
func WithRobots(respect bool) Option {
	return func(c *Client) {
		c.respectRobots = respect
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a Client. Without options it uses a plain http.Client, no
// rate limit and ignores robots.txt.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  "acsmirror",
		robots:     make(map[string]func(string) bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Get issues a GET request for rawURL and returns the response if its
// status is 2xx. The caller must close the body. Every failure, including
// a non-2xx status, is returned as a *FetchError.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	if c.respectRobots {
		if !c.allowed(ctx, rawURL) {
			return nil, &FetchError{URL: rawURL, Err: ErrDisallowed}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		return nil, &FetchError{URL: rawURL, Err: &StatusError{StatusCode: resp.StatusCode}}
	}
	return resp, nil
}

// allowed reports whether robots.txt permits fetching rawURL.
// A robots.txt that cannot be read is treated like a server error, which
// disallows everything on that host.
func (c *Client) allowed(ctx context.Context, rawURL string) bool {
	loc, err := robots.Locate(rawURL)
	if err != nil {
		return false
	}

	c.mu.Lock()
	tester, ok := c.robots[loc]
	c.mu.Unlock()
	if !ok {
		tester = c.loadRobots(ctx, loc)
		c.mu.Lock()
		c.robots[loc] = tester
		c.mu.Unlock()
	}
	return tester(rawURL)
}

func (c *Client) loadRobots(ctx context.Context, loc string) func(string) bool {
	unavailable := func() func(string) bool {
		rtxt, _ := robots.From(http.StatusServiceUnavailable, nil) //nolint:errcheck // 503 always parses
		return rtxt.Tester(c.userAgent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return unavailable()
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("robots.txt unavailable", "url", loc, "error", err)
		return unavailable()
	}
	defer resp.Body.Close()

	rtxt, err := robots.From(resp.StatusCode, resp.Body)
	if err != nil {
		c.logger.Warn("robots.txt unreadable", "url", loc, "error", err)
		return unavailable()
	}
	c.logger.Debug("loaded robots.txt", "url", loc, "status", resp.StatusCode)
	return rtxt.Tester(c.userAgent)
}
