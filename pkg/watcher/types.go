// Package watcher turns raw filesystem events into stable-file
// notifications.
//
// It uses fsnotify to observe a single flat directory and reports a
// file exactly once, only after the file has stopped growing. A file
// counts as stable when its size is unchanged across two consecutive
// checks and it has existed for a minimum age; this bounds the chance
// of picking up a file mid-copy without relying on close events,
// which not all filesystems deliver.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    Directory: "/media/incoming",
//	    Patterns:  []string{"*.mp4", "*.mov"},
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = w.Start(func(path string) {
//	    fmt.Println("ready:", path)
//	})
package watcher

import (
	"time"

	"github.com/benbjohnson/clock"
)

// minStableChecks is how many consecutive unchanged-size checks a
// file needs before it can be delivered.
const minStableChecks = 2

// Callback receives the absolute path of a stable file.
//
// It is invoked from the watcher's internal goroutine, one call per
// arrival; implementations must be safe to call from that goroutine.
// Panics are contained and logged.
type Callback func(path string)

// pendingEvent tracks a file that has been seen but is not yet stable.
//
// Not persisted; the pending set is rebuilt by the initial scan on
// restart.
type pendingEvent struct {
	firstSeen    time.Time
	lastModified time.Time
	lastSize     int64
	stableTicks  int
}

// Status is a point-in-time snapshot of the watcher.
type Status struct {
	Running   bool     `json:"running"`
	Directory string   `json:"directory"`
	Patterns  []string `json:"patterns"`
	Pending   int      `json:"pending"`
	Delivered int      `json:"delivered"`
}

// Watcher reports stable file arrivals in a watched directory.
type Watcher interface {
	// Start begins observation and invokes callback once per stable
	// arrival. Files already present in the directory are scanned
	// immediately and flow through the same stability checks.
	//
	// Returns an error if the directory is missing or observation
	// cannot be established. Restarting a stopped watcher clears the
	// delivered set, so files may be reported again.
	Start(callback Callback) error

	// Stop ceases observation, joins internal goroutines, and
	// discards in-flight pending events.
	Stop() error

	// IsRunning reports whether the watcher is observing.
	IsRunning() bool

	// Status returns a snapshot for the status surface.
	Status() Status
}

// Config contains watcher configuration.
type Config struct {
	// Directory is the single flat directory to observe.
	// Subdirectories are ignored.
	Directory string

	// Patterns are case-insensitive globs matched against file names.
	// Default: *.mp4, *.mov, *.webm, *.mkv.
	Patterns []string

	// MinFileAge is the minimum time since first sight before a file
	// can be considered stable. Default: 5s.
	MinFileAge time.Duration

	// StabilityCheckInterval is the period of the stability ticker.
	// Default: 2s.
	StabilityCheckInterval time.Duration

	// Clock drives the stability ticker; tests substitute a mock.
	// Default: the wall clock.
	Clock clock.Clock
}
