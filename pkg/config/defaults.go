package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultFilePatterns are the glob patterns matched against incoming
// file names when the configuration does not override them.
var DefaultFilePatterns = []string{"*.mp4", "*.mov", "*.webm", "*.mkv"}

// Default returns a configuration populated with default values.
//
// WatchDirectory and OutputDirectory have no sensible defaults and
// are left empty; Validate rejects a config that never sets them.
func Default() *Config {
	return &Config{
		CacheDirectory: defaultCacheDir(),
		FilePatterns:   append([]string(nil), DefaultFilePatterns...),
		Watcher: WatcherConfig{
			MinFileAge:             5 * time.Second,
			StabilityCheckInterval: 2 * time.Second,
		},
		Processing: ProcessingConfig{
			MaxConcurrent:      3,
			ProcessingInterval: time.Second,
			MaxRetries:         3,
			AudioFormat:        "m4a",
			AudioQuality:       "medium",
		},
		Cache: CacheConfig{
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}

// defaultCacheDir returns the default cache directory.
//
// Returns: ~/.config/mediaq/cache/.
func defaultCacheDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./cache"
	}

	return filepath.Join(homeDir, ".config", "mediaq", "cache")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/mediaq/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "mediaq", "config.yaml")
}
