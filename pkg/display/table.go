package display

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/akozlov/mediaq/pkg/history"
	"github.com/akozlov/mediaq/pkg/pipeline"
	"github.com/akozlov/mediaq/pkg/queue"
)

// tableFormatter renders aligned text tables.
type tableFormatter struct{}

// FormatStatus implements Formatter.FormatStatus.
func (f *tableFormatter) FormatStatus(w io.Writer, status pipeline.Status) error {
	running := "stopped"
	if status.Running {
		running = "running"
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "State:\t%s\n", running)
	fmt.Fprintf(tw, "Watch directory:\t%s\n", status.WatchDirectory)
	fmt.Fprintf(tw, "Output directory:\t%s\n", status.OutputDirectory)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Detected:\t%d\n", status.Stats.Detected)
	fmt.Fprintf(tw, "Processed:\t%d\n", status.Stats.Processed)
	fmt.Fprintf(tw, "Errors:\t%d\n", status.Stats.Errors)
	fmt.Fprintf(tw, "Cache hits:\t%d\n", status.Stats.CacheHits)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Queue total:\t%d\n", status.Queue.Total)
	fmt.Fprintf(tw, "  pending:\t%d\n", status.Queue.Pending)
	fmt.Fprintf(tw, "  processing:\t%d\n", status.Queue.Processing)
	fmt.Fprintf(tw, "  completed:\t%d\n", status.Queue.Completed)
	fmt.Fprintf(tw, "  error:\t%d\n", status.Queue.Error)
	fmt.Fprintf(tw, "  failed:\t%d\n", status.Queue.Failed)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Watcher pending:\t%d\n", status.Monitor.Pending)
	fmt.Fprintf(tw, "Watcher delivered:\t%d\n", status.Monitor.Delivered)

	return tw.Flush()
}

// FormatItems implements Formatter.FormatItems.
func (f *tableFormatter) FormatItems(w io.Writer, items []*queue.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "queue is empty")
		return err
	}

	// Scheduling order: priority descending, older first.
	sorted := append([]*queue.Item(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].AddedAt.Before(sorted[j].AddedAt)
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tPRIO\tATTEMPTS\tADDED\tPATH\tLAST ERROR")

	for _, item := range sorted {
		fmt.Fprintf(tw, "%s\t%d\t%d/%d\t%s\t%s\t%s\n",
			item.Status,
			item.Priority,
			item.ErrorCount,
			item.MaxRetries,
			item.AddedAt.Format("2006-01-02 15:04:05"),
			item.Path,
			item.LastError)
	}

	return tw.Flush()
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, records []history.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no processing history")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tSTATUS\tDURATION\tPATH\tERROR")

	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.FinishedAt.Format("2006-01-02 15:04:05"),
			rec.Status,
			rec.Duration.Round(time.Millisecond),
			rec.Path,
			rec.LastError)
	}

	return tw.Flush()
}

// FormatCacheSizes implements Formatter.FormatCacheSizes.
func (f *tableFormatter) FormatCacheSizes(w io.Writer, sizes map[string]int64) error {
	namespaces := make([]string, 0, len(sizes))
	for ns := range sizes {
		if ns != "total" {
			namespaces = append(namespaces, ns)
		}
	}
	sort.Strings(namespaces)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tSIZE")

	for _, ns := range namespaces {
		fmt.Fprintf(tw, "%s\t%s\n", ns, formatBytes(sizes[ns]))
	}
	fmt.Fprintf(tw, "total\t%s\n", formatBytes(sizes["total"]))

	return tw.Flush()
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
