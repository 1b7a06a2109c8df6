package cache

import "errors"

// Common errors returned by the cache store.
var (
	// ErrInvalidDir is returned when the cache directory cannot be created.
	ErrInvalidDir = errors.New("cache directory cannot be created")
)
