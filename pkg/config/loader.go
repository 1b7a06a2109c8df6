package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, searches for a config file in:
// 1. ./config.yaml (current directory)
// 2. ~/.config/mediaq/config.yaml.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	// Start with default configuration
	cfg := Default()

	// Find config file path
	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	// Load from file if it exists
	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// If a file was explicitly specified but can't be loaded,
			// return the error; otherwise fall back to defaults.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = l.mergeConfigs(cfg, fileCfg)
		}
	}

	// Apply environment variable overrides
	cfg = l.applyEnvVars(cfg)

	// Validate final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// findConfigFile searches for a config file in standard locations.
//
// Returns empty string if no config file is found.
func (l *loader) findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		defaultConfigPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into the default configuration.
//
// File values override defaults, but only if they are non-zero.
func (l *loader) mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.WatchDirectory != "" {
		result.WatchDirectory = override.WatchDirectory
	}
	if override.OutputDirectory != "" {
		result.OutputDirectory = override.OutputDirectory
	}
	if override.CacheDirectory != "" {
		result.CacheDirectory = override.CacheDirectory
	}
	if len(override.FilePatterns) > 0 {
		result.FilePatterns = override.FilePatterns
	}

	// Merge watcher config
	if override.Watcher.MinFileAge > 0 {
		result.Watcher.MinFileAge = override.Watcher.MinFileAge
	}
	if override.Watcher.StabilityCheckInterval > 0 {
		result.Watcher.StabilityCheckInterval = override.Watcher.StabilityCheckInterval
	}

	// Merge processing config
	if override.Processing.MaxConcurrent > 0 {
		result.Processing.MaxConcurrent = override.Processing.MaxConcurrent
	}
	if override.Processing.ProcessingInterval > 0 {
		result.Processing.ProcessingInterval = override.Processing.ProcessingInterval
	}
	if override.Processing.MaxRetries > 0 {
		result.Processing.MaxRetries = override.Processing.MaxRetries
	}
	if override.Processing.AudioFormat != "" {
		result.Processing.AudioFormat = override.Processing.AudioFormat
	}
	if override.Processing.AudioQuality != "" {
		result.Processing.AudioQuality = override.Processing.AudioQuality
	}

	// Merge cache config
	if override.Cache.RetentionDays > 0 {
		result.Cache.RetentionDays = override.Cache.RetentionDays
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - MEDIAQ_WATCH_DIR: Directory to watch
//   - MEDIAQ_OUTPUT_DIR: Output directory
//   - MEDIAQ_CACHE_DIR: Cache directory
//   - MEDIAQ_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if watchDir := os.Getenv("MEDIAQ_WATCH_DIR"); watchDir != "" {
		result.WatchDirectory = watchDir
	}

	if outputDir := os.Getenv("MEDIAQ_OUTPUT_DIR"); outputDir != "" {
		result.OutputDirectory = outputDir
	}

	if cacheDir := os.Getenv("MEDIAQ_CACHE_DIR"); cacheDir != "" {
		result.CacheDirectory = cacheDir
	}

	if logLevel := os.Getenv("MEDIAQ_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
//
// Equivalent to:
//
//	loader := NewLoader("")
//	return loader.Load()
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// The file is created with 0600 permissions.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
