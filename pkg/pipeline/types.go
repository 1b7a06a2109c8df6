// Package pipeline wires the watcher, queue, worker pool, cache, and
// history store into one ingestion pipeline.
//
// The pipeline owns component lifecycle: Start brings up the queue's
// worker pool and then the watcher; Stop quiesces input first and
// then drains in-flight work with a bounded wait. Detected files are
// queued with extraction metadata and processed by a cache-aware
// processing function.
//
// Example usage:
//
//	p, err := pipeline.New(pipeline.Config{
//	    WatchDirectory:  "/media/incoming",
//	    OutputDirectory: "/media/audio",
//	    CacheDirectory:  "/media/.cache",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := p.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop()
package pipeline

import (
	"time"

	"github.com/akozlov/mediaq/pkg/queue"
	"github.com/akozlov/mediaq/pkg/watcher"
	"github.com/akozlov/mediaq/pkg/worker"
)

// cacheNamespace is where extraction results are memoized.
const cacheNamespace = "audio_extraction"

// Stats counts pipeline activity since the pipeline was created.
// Start does not reset the counters.
type Stats struct {
	// Detected is the number of stable files reported by the watcher.
	Detected int `json:"detected"`

	// Processed is the number of files that completed processing.
	Processed int `json:"processed"`

	// Errors is the number of failed processing attempts.
	Errors int `json:"errors"`

	// CacheHits is the number of files satisfied from the cache.
	CacheHits int `json:"cache_hits"`
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running         bool           `json:"running"`
	WatchDirectory  string         `json:"watch_directory"`
	OutputDirectory string         `json:"output_directory"`
	Stats           Stats          `json:"stats"`
	Monitor         watcher.Status `json:"monitor"`
	Queue           queue.Stats    `json:"queue"`
}

// Pipeline owns the ingestion components and exposes a single
// start/stop surface.
type Pipeline interface {
	// Start brings the pipeline up: worker pool first, watcher last.
	//
	// Returns ErrAlreadyRunning if started twice, or the component
	// error that prevented startup.
	Start() error

	// Stop quiesces the watcher and drains the worker pool, waiting
	// up to the configured stop timeout.
	//
	// Returns true if everything shut down cleanly within the
	// timeout. Stopping a stopped pipeline is a no-op returning true.
	Stop() bool

	// IsRunning reports whether the pipeline is started.
	IsRunning() bool

	// Status returns a snapshot of pipeline, watcher, and queue state.
	Status() Status

	// RetryErrors resets every retryable errored file to pending and
	// returns the count.
	RetryErrors() int

	// ClearCompleted removes completed files from the queue and
	// returns the count.
	ClearCompleted() int

	// Queue exposes the underlying queue for maintenance surfaces.
	Queue() queue.Queue

	// Close stops the pipeline if needed and releases long-lived
	// resources such as the history database.
	Close() error
}

// Config contains pipeline configuration.
type Config struct {
	// WatchDirectory is observed for incoming files. Required.
	WatchDirectory string

	// OutputDirectory receives extracted audio; also hosts the queue
	// persistence directory. Required.
	OutputDirectory string

	// CacheDirectory enables result caching when set.
	CacheDirectory string

	// HistoryDBPath enables the outcome history store when set.
	HistoryDBPath string

	// FilePatterns are the watcher's globs. Default: common video
	// extensions.
	FilePatterns []string

	// MaxConcurrent caps parallel processing. Default: 3.
	MaxConcurrent int

	// MaxRetries caps attempts per file. Default: 3.
	MaxRetries int

	// MinFileAge is the watcher's stability age floor. Default: 5s.
	MinFileAge time.Duration

	// StabilityCheckInterval is the watcher's ticker period. Default: 2s.
	StabilityCheckInterval time.Duration

	// ProcessingInterval is the pool's dispatch tick. Default: 1s.
	ProcessingInterval time.Duration

	// RetentionDays is the cache TTL. Default: 30.
	RetentionDays int

	// AudioFormat is the extraction container (m4a, mp3, wav).
	// Default: m4a.
	AudioFormat string

	// AudioQuality is the extraction profile (low, medium, high).
	// Default: medium.
	AudioQuality string

	// StopTimeout bounds the drain wait in Stop. Default: 30s.
	StopTimeout time.Duration

	// ProcessFunc replaces the default cache-aware ffmpeg extraction.
	// Mainly for embedding the pipeline around other work; input
	// validation is skipped when set, since validation belongs to the
	// extraction collaborator.
	ProcessFunc worker.ProcessFunc
}
