package model

import "time"

// Transfer records one file handled by the crawler.
type Transfer struct {
	URL  string `json:"url"`
	Path string `json:"path"`

	// Role is the classification that selected the file, e.g. "state" or
	// "file_template".
	Role string `json:"role"`

	// Year is the year directory the file belongs to.
	Year string `json:"year,omitempty"`

	// Skipped is true when the file already existed locally.
	Skipped bool `json:"skipped"`

	Bytes  int64  `json:"bytes"`
	Digest string `json:"digest,omitempty"`

	At time.Time `json:"at"`
}

// StructureIssue records a remote layout assumption that failed, and the
// part of the crawl that was abandoned because of it.
type StructureIssue struct {
	URL     string    `json:"url"`
	Year    string    `json:"year,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
