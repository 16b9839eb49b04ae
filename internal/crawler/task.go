package crawler

import (
	"fmt"

	"github.com/nao1215/acsmirror/internal/classify"
	"github.com/nao1215/acsmirror/internal/listing"
)

// Kind is the traversal role a Task is bound to.
type Kind int

const (
	// KindRoot lists year directories under the summary file root.
	KindRoot Kind = iota
	// KindYearDir splits a year into documentation and data.
	KindYearDir
	// KindGenericFetch mirrors a tree by file extension.
	KindGenericFetch
	// KindRegionFetch selects region data under a data directory.
	KindRegionFetch
	// KindRegionLeaf downloads the payload files of one region.
	KindRegionLeaf
	// KindShellsRoot lists year directories under the table shells root.
	KindShellsRoot
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindYearDir:
		return "year"
	case KindGenericFetch:
		return "generic"
	case KindRegionFetch:
		return "region"
	case KindRegionLeaf:
		return "region_leaf"
	case KindShellsRoot:
		return "shells_root"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Task is one directory to visit.
type Task struct {
	Kind Kind

	// URL is the remote directory.
	URL string

	// Dir is the local directory mirroring URL.
	Dir string

	// Year is the year directory the task belongs to. Empty for roots.
	Year string

	// Region is the region of a KindRegionLeaf task.
	Region string

	// Extensions are the accepted file suffixes of a KindGenericFetch task.
	Extensions []string
}

// child derives a task for a sub-directory of t.
func (t Task) child(kind Kind, url, dir string) Task {
	return Task{
		Kind:       kind,
		URL:        url,
		Dir:        dir,
		Year:       t.Year,
		Region:     t.Region,
		Extensions: t.Extensions,
	}
}

// ActionKind says what to do with one listing entry.
type ActionKind int

const (
	// ActionSkip ignores the entry.
	ActionSkip ActionKind = iota
	// ActionDescend visits the entry as a new Task.
	ActionDescend
	// ActionDownload saves the entry to Path.
	ActionDownload
)

// String returns the action name used in logs.
func (k ActionKind) String() string {
	switch k {
	case ActionDescend:
		return "descend"
	case ActionDownload:
		return "download"
	default:
		return "skip"
	}
}

// Action is the decision Plan made for one listing entry.
type Action struct {
	Kind ActionKind
	Link listing.Link
	Role classify.Role

	// Year is the year directory the entry belongs to.
	Year string

	// URL and Path locate a download.
	URL  string
	Path string

	// Task is the sub-directory visit of a descend action.
	Task Task

	// Reason explains a skip.
	Reason string

	// Err is set when the entry was skipped because of a classification
	// error, such as an ambiguous region name.
	Err error
}
