package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoWatchDirectory is returned when no watch directory is specified.
	ErrNoWatchDirectory = errors.New("no watch directory specified")

	// ErrNoOutputDirectory is returned when no output directory is specified.
	ErrNoOutputDirectory = errors.New("no output directory specified")

	// ErrInvalidMinFileAge is returned when min file age is negative.
	ErrInvalidMinFileAge = errors.New("invalid min file age: must be >= 0")

	// ErrInvalidStabilityInterval is returned when the stability check interval is < 1s.
	ErrInvalidStabilityInterval = errors.New("invalid stability check interval: must be >= 1s")

	// ErrInvalidMaxConcurrent is returned when max concurrent is < 1.
	ErrInvalidMaxConcurrent = errors.New("invalid max concurrent: must be >= 1")

	// ErrInvalidProcessingInterval is returned when the processing interval is <= 0.
	ErrInvalidProcessingInterval = errors.New("invalid processing interval: must be > 0")

	// ErrInvalidMaxRetries is returned when max retries is < 1.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be >= 1")

	// ErrInvalidAudioFormat is returned when the audio format is not recognized.
	ErrInvalidAudioFormat = errors.New("invalid audio format: must be m4a, mp3, or wav")

	// ErrInvalidAudioQuality is returned when the quality profile is not recognized.
	ErrInvalidAudioQuality = errors.New("invalid audio quality: must be low, medium, or high")

	// ErrInvalidRetentionDays is returned when cache retention is <= 0.
	ErrInvalidRetentionDays = errors.New("invalid retention days: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
