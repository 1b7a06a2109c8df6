package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrDirectoryNotFound is returned when the watch directory does not exist.
	ErrDirectoryNotFound = errors.New("watch directory does not exist")

	// ErrAlreadyStarted is returned when Start is called on a running watcher.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called on a non-running watcher.
	ErrNotStarted = errors.New("watcher not started")
)
