package history

import "errors"

// Common errors returned by the history store.
var (
	// ErrNoDBPath is returned when no database path is configured.
	ErrNoDBPath = errors.New("history database path not configured")

	// ErrStoreClosed is returned when using a closed store.
	ErrStoreClosed = errors.New("history store is closed")
)
