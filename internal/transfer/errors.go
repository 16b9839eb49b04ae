package transfer

import (
	"errors"
	"fmt"
)

// ErrTransfer matches every *TransferError through errors.Is.
var ErrTransfer = errors.New("transfer failed")

// TransferError reports a file stream that ended before completion, or a
// local write that failed. The destination path never exists when this
// error is returned for a new file.
type TransferError struct {
	URL  string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s to %s: %v", e.URL, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransfer.
func (e *TransferError) Is(target error) bool { return target == ErrTransfer }
