package cache

import (
	// #nosec G501: MD5 is used for cache file naming, not security
	"crypto/md5" // nolint:gosec
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/akozlov/mediaq/pkg/logger"
)

// store implements the Store interface on the local filesystem.
type store struct {
	dir       string
	retention time.Duration
	logger    logger.Logger

	// Guards mutating filesystem operations within this process.
	// Readers do not lock; a torn write surfaces as a miss.
	mu sync.Mutex
}

// New creates a new cache store rooted at cfg.Dir.
//
// Parameters:
//   - cfg: Cache configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if the cache directory cannot be created
func New(cfg Config, log logger.Logger) (Store, error) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}

	dir := expandHome(cfg.Dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}

	log.Debug("cache store initialized",
		"dir", dir,
		"retention_days", cfg.RetentionDays)

	return &store{
		dir:       dir,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		logger:    log,
	}, nil
}

// entryPath returns the file path for (namespace, key).
//
// The key is hashed so arbitrary strings produce safe file names.
func (s *store) entryPath(namespace, key string) string {
	sum := md5.Sum([]byte(key)) // nolint:gosec
	return filepath.Join(s.dir, namespace, hex.EncodeToString(sum[:]))
}

// Store implements Store.Store.
func (s *store) Store(namespace, key string, value []byte) bool {
	path := s.entryPath(namespace, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		s.logger.Error("failed to create cache namespace",
			"namespace", namespace,
			"error", err)
		return false
	}

	if err := os.WriteFile(path, value, 0600); err != nil {
		s.logger.Error("failed to write cache entry",
			"namespace", namespace,
			"key", key,
			"error", err)
		return false
	}

	s.logger.Debug("cache entry stored", "namespace", namespace, "key", key)
	return true
}

// StoreJSON implements Store.StoreJSON.
func (s *store) StoreJSON(namespace, key string, value interface{}) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to marshal cache value",
			"namespace", namespace,
			"key", key,
			"error", err)
		return false
	}

	return s.Store(namespace, key, data)
}

// Get implements Store.Get.
func (s *store) Get(namespace, key string) ([]byte, bool) {
	path := s.entryPath(namespace, key)

	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read cache entry",
				"namespace", namespace,
				"key", key,
				"error", err)
		}
		return nil, false
	}

	s.logger.Debug("cache hit", "namespace", namespace, "key", key)
	return data, true
}

// GetJSON implements Store.GetJSON.
func (s *store) GetJSON(namespace, key string, out interface{}) bool {
	data, ok := s.Get(namespace, key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		// Treated as a miss; the file stays for operator inspection.
		s.logger.Warn("corrupted cache entry",
			"namespace", namespace,
			"key", key,
			"error", err)
		return false
	}

	return true
}

// HasValid implements Store.HasValid.
func (s *store) HasValid(namespace, key string, maxAgeDays int) bool {
	info, err := os.Stat(s.entryPath(namespace, key))
	if err != nil {
		return false
	}

	if maxAgeDays >= 0 {
		maxAge := time.Duration(maxAgeDays) * 24 * time.Hour
		if time.Since(info.ModTime()) > maxAge {
			s.logger.Debug("cache entry expired",
				"namespace", namespace,
				"key", key,
				"max_age_days", maxAgeDays)
			return false
		}
	}

	return true
}

// Invalidate implements Store.Invalidate.
func (s *store) Invalidate(namespace, key string) int {
	path := s.entryPath(namespace, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to remove cache entry",
				"namespace", namespace,
				"key", key,
				"error", err)
		}
		return 0
	}

	s.logger.Debug("cache entry invalidated", "namespace", namespace, "key", key)
	return 1
}

// InvalidateNamespace implements Store.InvalidateNamespace.
func (s *store) InvalidateNamespace(namespace string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeMatching(filepath.Join(s.dir, namespace), func(os.FileInfo) bool {
		return true
	})
}

// InvalidateAll implements Store.InvalidateAll.
func (s *store) InvalidateAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.removeMatching(s.dir, func(os.FileInfo) bool {
		return true
	})

	s.logger.Info("cache invalidated", "removed", count)
	return count
}

// Cleanup implements Store.Cleanup.
func (s *store) Cleanup() int {
	return s.cleanupWithMaxAge(s.dir, s.retention)
}

// CleanupOlderThan implements Store.CleanupOlderThan.
func (s *store) CleanupOlderThan(days int) int {
	return s.cleanupWithMaxAge(s.dir, time.Duration(days)*24*time.Hour)
}

// CleanupNamespace implements Store.CleanupNamespace.
func (s *store) CleanupNamespace(namespace string) int {
	return s.cleanupWithMaxAge(filepath.Join(s.dir, namespace), s.retention)
}

// cleanupWithMaxAge removes entries under root older than maxAge.
func (s *store) cleanupWithMaxAge(root string, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := s.removeMatching(root, func(info os.FileInfo) bool {
		return now.Sub(info.ModTime()) > maxAge
	})

	s.logger.Info("cache cleanup complete", "removed", count)
	return count
}

// removeMatching removes regular files under root for which match
// returns true. Callers must hold s.mu.
func (s *store) removeMatching(root string, match func(os.FileInfo) bool) int {
	count := 0

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Missing root means an empty cache, not a failure.
			if os.IsNotExist(err) {
				return nil
			}
			s.logger.Warn("error walking cache", "path", path, "error", err)
			return nil
		}

		if info.IsDir() || !match(info) {
			return nil
		}

		if removeErr := os.Remove(path); removeErr != nil {
			s.logger.Error("failed to remove cache file",
				"path", path,
				"error", removeErr)
			return nil
		}

		count++
		return nil
	})

	if walkErr != nil {
		s.logger.Error("cache walk failed", "root", root, "error", walkErr)
	}

	return count
}

// Size implements Store.Size.
func (s *store) Size() map[string]int64 {
	result := map[string]int64{"total": 0}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read cache directory", "error", err)
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		var size int64
		hasFiles := false

		nsDir := filepath.Join(s.dir, entry.Name())
		_ = filepath.Walk(nsDir, func(path string, info os.FileInfo, err error) error { // nolint:errcheck
			if err != nil || info.IsDir() {
				return nil
			}
			hasFiles = true
			size += info.Size()
			return nil
		})

		// Only namespaces that actually hold entries are reported.
		if hasFiles {
			result[entry.Name()] = size
			result["total"] += size
		}
	}

	return result
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
