// Package history provides a durable record of processing outcomes.
//
// Every file that reaches a terminal state (completed or failed) is
// appended to a BoltDB database, giving the status surface a view of
// what happened across restarts that the live queue, which can be
// cleared, does not keep.
//
// Example usage:
//
//	h, err := history.New(history.Config{
//	    DBPath: "~/.config/mediaq/history.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	recent, _ := h.Recent(10)
package history

import (
	"time"
)

// Record is one terminal processing outcome.
type Record struct {
	// Path is the processed file.
	Path string `json:"path"`

	// Status is the terminal status name (completed or failed).
	Status string `json:"status"`

	// Priority the item was scheduled with.
	Priority int `json:"priority"`

	// ErrorCount is the number of failed attempts the item used.
	ErrorCount int `json:"error_count"`

	// LastError is the final failure message, empty on success.
	LastError string `json:"last_error,omitempty"`

	// Duration is how long the final attempt took.
	Duration time.Duration `json:"duration"`

	// FinishedAt is when the item reached its terminal status.
	FinishedAt time.Time `json:"finished_at"`
}

// Store records and queries processing outcomes.
type Store interface {
	// Append adds one outcome record.
	Append(rec Record) error

	// Recent returns up to n records, newest first.
	Recent(n int) ([]Record, error)

	// CountByStatus returns lifetime outcome totals per status name.
	CountByStatus() (map[string]int, error)

	// Close releases the underlying database.
	Close() error
}

// Config contains history store configuration.
type Config struct {
	// DBPath is the BoltDB file location.
	DBPath string

	// Timeout bounds the wait for the database file lock. Default: 1s.
	Timeout time.Duration
}
