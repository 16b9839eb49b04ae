package burst

import "errors"

// ErrUnsafeEntry is returned for archive entries whose names are absolute
// or contain "..". Nothing is extracted from such an archive.
var ErrUnsafeEntry = errors.New("unsafe archive entry name")
