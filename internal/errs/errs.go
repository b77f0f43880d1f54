// Package errs defines the loader's error taxonomy. Every error here is
// fatal: the loader has no retry path and relies on idempotent partition
// re-runs for recovery, so errors carry enough context for an operator to
// locate and fix the input (or the store) and run again.
package errs

import (
	"errors"
	"fmt"
)

// MissingFileError reports a required input file that does not exist.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing input file %s: %v", e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// ParseError reports malformed JSON or an unreadable spreadsheet. Offset is
// the byte position in the source stream when known, and -1 otherwise.
type ParseError struct {
	Source string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("parse %s at byte %d: %v", e.Source, e.Offset, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RecordError reports a streamed element that is missing a required field or
// holds a value that cannot be coerced to the expected type. Raw carries the
// offending element so the bad record can be found in the source document.
type RecordError struct {
	Field string
	Raw   any
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record field %q: %v (element: %v)", e.Field, e.Err, e.Raw)
}

func (e *RecordError) Unwrap() error { return e.Err }

// WriteError reports a failed bulk write or delete at the store. The whole
// batch is aborted; there is no partial-row recovery.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Class returns a short name for the error's taxonomy class, used in exit
// diagnostics and metrics labels. Unknown errors report as "error".
func Class(err error) string {
	var (
		mf *MissingFileError
		pe *ParseError
		re *RecordError
		we *WriteError
	)
	switch {
	case errors.As(err, &mf):
		return "missing_file"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &re):
		return "record"
	case errors.As(err, &we):
		return "write"
	default:
		return "error"
	}
}
