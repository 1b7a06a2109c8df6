package display

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/akozlov/mediaq/pkg/history"
	"github.com/akozlov/mediaq/pkg/pipeline"
	"github.com/akozlov/mediaq/pkg/queue"
)

// jsonFormatter renders machine-readable JSON.
type jsonFormatter struct{}

// encode writes v with indentation.
func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatStatus implements Formatter.FormatStatus.
func (f *jsonFormatter) FormatStatus(w io.Writer, status pipeline.Status) error {
	return f.encode(w, status)
}

// FormatItems implements Formatter.FormatItems.
func (f *jsonFormatter) FormatItems(w io.Writer, items []*queue.Item) error {
	return f.encode(w, items)
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, records []history.Record) error {
	return f.encode(w, records)
}

// FormatCacheSizes implements Formatter.FormatCacheSizes.
func (f *jsonFormatter) FormatCacheSizes(w io.Writer, sizes map[string]int64) error {
	return f.encode(w, sizes)
}
