package extract

import "errors"

// Common errors returned by the extractor.
var (
	// ErrToolsMissing is returned when ffmpeg or ffprobe is not installed.
	ErrToolsMissing = errors.New("ffmpeg and ffprobe are required but not found")

	// ErrNoDuration is returned when ffprobe reports no usable duration.
	ErrNoDuration = errors.New("could not determine media duration")

	// ErrEmptyOutput is returned when extraction produces no output file.
	ErrEmptyOutput = errors.New("extraction produced an empty output file")
)
