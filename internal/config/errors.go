package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and identify the offending
// setting so that callers can use errors.Is() for programmatic handling.
var (
	// ErrNoBaseURL is returned when the summary file root URL is empty.
	ErrNoBaseURL = errors.New("no base URL specified")

	// ErrInvalidBaseURL is returned when a root URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrNoRegions is returned when the accepted region set is empty.
	// An empty set would mirror only documentation and templates, which is
	// almost certainly a mistake in a region list.
	ErrNoRegions = errors.New("no regions specified")

	// ErrUnknownRegion is returned when a configured region is not one of the
	// names published on the remote tree.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrInvalidExtension is returned when a documentation extension does not
	// start with a dot.
	ErrInvalidExtension = errors.New("invalid extension: must start with '.'")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the request rate is negative.
	// Use 0 to disable rate limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidYear is returned when a year filter entry is not four digits.
	ErrInvalidYear = errors.New("invalid year: must be four digits")
)
