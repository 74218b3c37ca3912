package gravity

import "errors"

var (
	// ErrInvalidInput marks caller mistakes: malformed poll ids, cursors or limits.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a poll that does not exist in the ledger.
	ErrNotFound = errors.New("not found")
)
