package queue

import "errors"

// Common errors returned by the queue.
var (
	// ErrAlreadyQueued is returned when adding a path that is already queued.
	ErrAlreadyQueued = errors.New("file already in queue")

	// ErrNotFound is returned when a path is not in the queue.
	ErrNotFound = errors.New("file not in queue")
)
