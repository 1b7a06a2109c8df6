// Package display provides output formatting for pipeline status and
// queue listings.
//
// It supports a human-readable table format and machine-readable JSON.
package display

import (
	"io"

	"github.com/akozlov/mediaq/pkg/history"
	"github.com/akozlov/mediaq/pkg/pipeline"
	"github.com/akozlov/mediaq/pkg/queue"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays information in aligned text tables.
	FormatTable Format = "table"

	// FormatJSON displays information as JSON.
	FormatJSON Format = "json"
)

// Formatter renders pipeline information for the CLI.
type Formatter interface {
	// FormatStatus renders a pipeline status snapshot.
	FormatStatus(w io.Writer, status pipeline.Status) error

	// FormatItems renders queue items, most urgent first.
	FormatItems(w io.Writer, items []*queue.Item) error

	// FormatHistory renders recent processing outcomes.
	FormatHistory(w io.Writer, records []history.Record) error

	// FormatCacheSizes renders per-namespace cache sizes.
	FormatCacheSizes(w io.Writer, sizes map[string]int64) error
}

// Config contains formatter configuration.
type Config struct {
	// Format selects the output format. Default: table.
	Format Format
}

// New creates a formatter for the configured format.
func New(cfg Config) Formatter {
	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{}
	default:
		return &tableFormatter{}
	}
}
