package executor

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error wraps exactly one of these; match with errors.Is.
var (
	// ErrSchema indicates the bookkeeping table could not be created or verified.
	ErrSchema = errors.New("bookkeeping table could not be created")
	// ErrIO indicates the patches directory or a patch file could not be read.
	ErrIO = errors.New("reading patches failed")
	// ErrQuery indicates the bookkeeping table could not be read.
	ErrQuery = errors.New("bookkeeping table could not be read")
	// ErrExecution indicates a patch's SQL failed to execute.
	ErrExecution = errors.New("patch execution failed")
	// ErrInsert indicates a patch executed but its bookkeeping row could not
	// be inserted. The patch's effects remain and it will run again next time.
	ErrInsert = errors.New("recording patch failed")
)

// Error is returned by ApplyPatches. Filename is empty for errors that are
// not tied to a single patch file.
type Error struct {
	Kind     error
	Filename string
	Err      error
}

func (e *Error) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}

	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Filename, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newError(kind error, filename string, err error) *Error {
	return &Error{Kind: kind, Filename: filename, Err: err}
}
