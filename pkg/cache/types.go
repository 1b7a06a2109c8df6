// Package cache provides a content-addressed file cache partitioned
// by namespace.
//
// Each namespace is a subdirectory of the cache root; each entry is a
// single file named by the MD5 hex digest of the caller's key. The
// entry file's mtime is its age oracle for TTL checks. The cache is a
// memoization layer for expensive deterministic work; eviction is
// purely age-based.
//
// Example usage:
//
//	c, err := cache.New(cache.Config{
//	    Dir:           "~/.config/mediaq/cache",
//	    RetentionDays: 30,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c.Store("audio_extraction", key, []byte(outputPath))
//	if data, ok := c.Get("audio_extraction", key); ok {
//	    fmt.Println(string(data))
//	}
package cache

// Store provides namespaced, content-addressed caching.
type Store interface {
	// Store saves value under (namespace, key).
	//
	// Returns true on success. Failures are logged and reported as
	// false; they never propagate as errors.
	Store(namespace, key string, value []byte) bool

	// StoreJSON marshals value as JSON and stores it under (namespace, key).
	StoreJSON(namespace, key string, value interface{}) bool

	// Get retrieves the value stored under (namespace, key).
	//
	// Returns the value and true on a hit, nil and false on a miss.
	// Unreadable entries are treated as misses and left in place for
	// operator inspection.
	Get(namespace, key string) ([]byte, bool)

	// GetJSON retrieves and unmarshals the value stored under
	// (namespace, key) into out. Returns false on a miss or if the
	// entry does not decode.
	GetJSON(namespace, key string, out interface{}) bool

	// HasValid reports whether an entry exists for (namespace, key).
	//
	// If maxAgeDays is >= 0 the entry must additionally be no older
	// than that many days; pass a negative value to skip the age check.
	HasValid(namespace, key string, maxAgeDays int) bool

	// Invalidate removes the entry for (namespace, key) and returns
	// the number of files removed (0 or 1).
	Invalidate(namespace, key string) int

	// InvalidateNamespace removes every entry in the namespace and
	// returns the number of files removed.
	InvalidateNamespace(namespace string) int

	// InvalidateAll removes every entry in the cache and returns the
	// number of files removed.
	InvalidateAll() int

	// Cleanup removes entries older than the configured retention and
	// returns the number of files removed.
	Cleanup() int

	// CleanupOlderThan removes entries older than the given number of
	// days and returns the number of files removed.
	CleanupOlderThan(days int) int

	// CleanupNamespace removes entries in the namespace that are older
	// than the configured retention and returns the number removed.
	CleanupNamespace(namespace string) int

	// Size returns cache sizes in bytes. The "total" key holds the sum;
	// each non-empty namespace appears under its own name.
	Size() map[string]int64
}

// Config contains cache store configuration.
type Config struct {
	// Dir is the cache root directory. Created if missing.
	Dir string

	// RetentionDays is how long entries are kept by Cleanup.
	// Default: 30.
	RetentionDays int
}
