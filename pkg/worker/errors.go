package worker

import "errors"

// Common errors returned by the worker pool.
var (
	// ErrAlreadyStarted is returned when Start is called on a running pool.
	ErrAlreadyStarted = errors.New("worker pool already started")
)
