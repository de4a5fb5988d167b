package registry

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrCapacityExceeded indicates both slots are occupied by other paths.
	ErrCapacityExceeded = errors.New("registry capacity exceeded")

	// ErrNotLoaded indicates the path has no resident object.
	ErrNotLoaded = errors.New("object not loaded")

	// ErrIOFailure is matched by every IOError.
	ErrIOFailure = errors.New("I/O failure")
)

// IOError reports a file-system failure while loading an object, such as a
// missing file or a permission error.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrIOFailure) true for any IOError.
func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}
