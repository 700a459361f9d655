package fingerprint

import (
	"errors"
	"fmt"
)

var errNoCompiler = errors.New("compile command has no tokens")

// Error wraps a failure encountered while computing a fingerprint.
// Only "read source" and "version probe" failures are fatal to caching
// (spec section 4.1, "Failure modes"); callers should treat any other
// Error as a cue to degrade, not abort.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fingerprint %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
