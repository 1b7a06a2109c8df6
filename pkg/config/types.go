// Package config provides configuration management for mediaq.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Environment variables
// 2. Configuration file
// 3. Default values
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("watching: %s\n", cfg.WatchDirectory)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - WatchDirectory and OutputDirectory must be set
// - MaxConcurrent must be >= 1
// - MinFileAge must be >= 0
// - StabilityCheckInterval must be >= 1s
// - ProcessingInterval must be > 0
// - RetentionDays must be > 0.
type Config struct {
	// Directory watched for incoming media files
	WatchDirectory string `yaml:"watch_directory"`

	// Directory where processed output files are written
	OutputDirectory string `yaml:"output_directory"`

	// Directory for the result cache; caching is disabled when empty
	CacheDirectory string `yaml:"cache_directory"`

	// Glob patterns for files to pick up (case-insensitive)
	FilePatterns []string `yaml:"file_patterns"`

	// Watcher settings
	Watcher WatcherConfig `yaml:"watcher"`

	// Processing settings
	Processing ProcessingConfig `yaml:"processing"`

	// Cache settings
	Cache CacheConfig `yaml:"cache"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// WatcherConfig contains stable-file detection settings.
type WatcherConfig struct {
	// Minimum age of a file before it can be considered stable
	MinFileAge time.Duration `yaml:"min_file_age"`

	// Interval between file size stability checks
	StabilityCheckInterval time.Duration `yaml:"stability_check_interval"`
}

// ProcessingConfig contains queue and worker pool settings.
type ProcessingConfig struct {
	// Maximum number of files processed concurrently
	MaxConcurrent int `yaml:"max_concurrent"`

	// Interval between dispatch ticks
	ProcessingInterval time.Duration `yaml:"processing_interval"`

	// Maximum processing attempts per file
	MaxRetries int `yaml:"max_retries"`

	// Audio container format for extracted tracks (m4a, mp3, wav)
	AudioFormat string `yaml:"audio_format"`

	// Extraction quality profile (low, medium, high)
	AudioQuality string `yaml:"audio_quality"`
}

// CacheConfig contains cache retention settings.
type CacheConfig struct {
	// How many days cache entries are retained
	RetentionDays int `yaml:"retention_days"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: this method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.WatchDirectory == "" {
		return ErrNoWatchDirectory
	}
	if c.OutputDirectory == "" {
		return ErrNoOutputDirectory
	}

	// Validate watcher config
	if c.Watcher.MinFileAge < 0 {
		return ErrInvalidMinFileAge
	}
	if c.Watcher.StabilityCheckInterval < time.Second {
		return ErrInvalidStabilityInterval
	}

	// Validate processing config
	if c.Processing.MaxConcurrent < 1 {
		return ErrInvalidMaxConcurrent
	}
	if c.Processing.ProcessingInterval <= 0 {
		return ErrInvalidProcessingInterval
	}
	if c.Processing.MaxRetries < 1 {
		return ErrInvalidMaxRetries
	}

	validFormats := map[string]bool{
		"m4a": true,
		"mp3": true,
		"wav": true,
	}
	if !validFormats[c.Processing.AudioFormat] {
		return ErrInvalidAudioFormat
	}

	validQualities := map[string]bool{
		"low":    true,
		"medium": true,
		"high":   true,
	}
	if !validQualities[c.Processing.AudioQuality] {
		return ErrInvalidAudioQuality
	}

	// Validate cache config
	if c.Cache.RetentionDays <= 0 {
		return ErrInvalidRetentionDays
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}
