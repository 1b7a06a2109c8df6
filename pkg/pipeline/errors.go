package pipeline

import "errors"

// Common errors returned by the pipeline.
var (
	// ErrAlreadyRunning is returned when Start is called on a running pipeline.
	ErrAlreadyRunning = errors.New("pipeline is already running")

	// ErrNoWatchDirectory is returned when no watch directory is configured.
	ErrNoWatchDirectory = errors.New("pipeline requires a watch directory")

	// ErrNoOutputDirectory is returned when no output directory is configured.
	ErrNoOutputDirectory = errors.New("pipeline requires an output directory")
)
