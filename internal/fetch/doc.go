// Package fetch provides the HTTP client shared by the listing parser and
// file transfer. It sets the User-Agent, paces requests with a token bucket
// limiter, optionally consults robots.txt, and turns non-2xx responses into
// errors so that callers only ever see successful bodies.
package fetch
