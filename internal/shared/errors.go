package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrOverrideConflict indicates a duplicate override row.
	ErrOverrideConflict = errors.New("override conflict")
)
