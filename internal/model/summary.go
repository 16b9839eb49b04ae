package model

import "time"

// Summary collects what one crawl did.
type Summary struct {
	Run Run `json:"run"`

	// Years lists the year directories entered, in crawl order.
	Years []string `json:"years"`

	// Listings is the number of directory listings fetched.
	Listings int `json:"listings"`

	// DirsCreated is the number of local directories that did not exist
	// before the run.
	DirsCreated int `json:"dirs_created"`

	// Downloaded and Existing count files transferred and files left
	// untouched because they were already present.
	Downloaded int `json:"downloaded"`
	Existing   int `json:"existing"`

	// Ignored counts listing entries no rule accepted.
	Ignored int `json:"ignored"`

	// Ambiguous counts region archives skipped because their name matched
	// more than one region.
	Ambiguous int `json:"ambiguous"`

	// Bytes is the total size of downloaded files.
	Bytes int64 `json:"bytes"`

	Transfers       []Transfer       `json:"transfers,omitempty"`
	StructureIssues []StructureIssue `json:"structure_issues,omitempty"`
}

// AddTransfer updates the counters for t and keeps it.
func (s *Summary) AddTransfer(t Transfer) {
	if t.Skipped {
		s.Existing++
	} else {
		s.Downloaded++
		s.Bytes += t.Bytes
	}
	s.Transfers = append(s.Transfers, t)
}

// Downloads returns the transfers that moved bytes.
func (s *Summary) Downloads() []Transfer {
	out := make([]Transfer, 0, s.Downloaded)
	for _, t := range s.Transfers {
		if !t.Skipped {
			out = append(out, t)
		}
	}
	return out
}

// Elapsed returns the run duration, or zero while the run is in progress.
func (s *Summary) Elapsed() time.Duration {
	if s.Run.Finished.IsZero() {
		return 0
	}
	return s.Run.Finished.Sub(s.Run.Started)
}
