// Package worker provides the bounded pool that executes processing
// functions against queued files.
//
// A dispatch loop wakes on a fixed interval, asks its source for as
// many pending items as there are free slots, and runs each in its
// own goroutine. Outcomes are reported back to the source, which owns
// retry accounting. Stop is cooperative: in-flight processing is
// never interrupted, only awaited.
//
// Example usage:
//
//	p := worker.New(worker.Config{MaxConcurrent: 3}, q, processFn, logger.Default())
//	if err := p.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop(30 * time.Second)
package worker

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/akozlov/mediaq/pkg/queue"
)

// ProcessFunc processes one file.
//
// It receives the file path and the item's metadata verbatim. A nil
// error with ok=false is a soft failure; a non-nil error or a panic is
// a hard failure. Either way the attempt counts against the item's
// retry budget. Implementations must be idempotent with respect to
// path: the at-least-once contract means the same file can be handed
// to the function again after a crash or retry.
type ProcessFunc func(path string, metadata map[string]interface{}) (bool, error)

// Source supplies work and receives outcomes.
//
// queue.Queue satisfies this interface.
type Source interface {
	// NextBatch atomically claims up to n pending items in start order.
	NextBatch(n int) []*queue.Item

	// ReportSuccess records a successful attempt.
	ReportSuccess(path string)

	// ReportFailure records a failed attempt with a message.
	ReportFailure(path string, message string)
}

// Pool runs processing functions with bounded concurrency.
type Pool interface {
	// Start spawns the dispatch loop.
	//
	// Returns ErrAlreadyStarted if the pool is running.
	Start() error

	// Stop signals shutdown and waits up to timeout for in-flight
	// work. In-flight processing functions are not interrupted.
	//
	// Returns true if all workers finished within the timeout.
	Stop(timeout time.Duration) bool

	// ActiveCount returns the number of in-flight processing functions.
	ActiveCount() int

	// WaitAll blocks until no work is in flight or the timeout
	// elapses. Returns true if the pool drained.
	WaitAll(timeout time.Duration) bool
}

// Config contains worker pool configuration.
type Config struct {
	// MaxConcurrent caps in-flight processing functions. Default: 3.
	MaxConcurrent int

	// Interval is the dispatch tick period. Default: 1s.
	Interval time.Duration

	// Clock drives the dispatch ticker; tests substitute a mock.
	// Default: the wall clock.
	Clock clock.Clock
}
