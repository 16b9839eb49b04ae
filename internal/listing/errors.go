package listing

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped in the *fetch.FetchError returned for a listing
// page larger than the parser's body limit.
var ErrTooLarge = errors.New("listing page exceeds size limit")

// ErrStructure matches every *StructureError through errors.Is.
var ErrStructure = errors.New("unexpected remote structure")

// StructureError reports that an assumption about the remote layout does
// not hold: the number of listing tables, or the documentation and data
// branches of a year directory.
type StructureError struct {
	URL    string
	Reason string
}

func (e *StructureError) Error() string {
	if e.URL == "" {
		return "unexpected remote structure: " + e.Reason
	}
	return fmt.Sprintf("unexpected remote structure at %s: %s", e.URL, e.Reason)
}

// Is reports whether target is ErrStructure.
func (e *StructureError) Is(target error) bool { return target == ErrStructure }
