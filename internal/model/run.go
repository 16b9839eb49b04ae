package model

import "time"

// RunKind names the tree a run mirrored.
type RunKind string

const (
	// RunKindSummaryFile is a crawl of the summary file tree.
	RunKindSummaryFile RunKind = "summary_file"
	// RunKindTableShells is a crawl of the table shells tree.
	RunKindTableShells RunKind = "table_shells"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	// RunStatusRunning marks a run that has not finished, or whose process
	// was killed before it could record an outcome.
	RunStatusRunning RunStatus = "running"
	// RunStatusSucceeded marks a run that visited its whole tree.
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusFailed marks a run aborted by a fetch or transfer error.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCanceled marks a run interrupted by the operator.
	RunStatusCanceled RunStatus = "canceled"
)

// Run is one crawl invocation as stored in the manifest.
type Run struct {
	ID       string    `json:"id"`
	Kind     RunKind   `json:"kind"`
	RootURL  string    `json:"root_url"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
	Status   RunStatus `json:"status"`

	// Error is the message of the error that ended a failed run.
	Error string `json:"error,omitempty"`
}
