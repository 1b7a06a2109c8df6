package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akozlov/mediaq/pkg/history"
	"github.com/akozlov/mediaq/pkg/pipeline"
	"github.com/akozlov/mediaq/pkg/queue"
)

func sampleStatus() pipeline.Status {
	return pipeline.Status{
		Running:         true,
		WatchDirectory:  "/media/incoming",
		OutputDirectory: "/media/audio",
		Stats: pipeline.Stats{
			Detected:  4,
			Processed: 3,
			Errors:    1,
			CacheHits: 2,
		},
		Queue: queue.Stats{
			Total:     4,
			Pending:   1,
			Completed: 3,
		},
	}
}

func sampleItems() []*queue.Item {
	added := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	return []*queue.Item{
		{
			Path:       "/media/low.mp4",
			Status:     queue.StatusPending,
			Priority:   0,
			AddedAt:    added,
			MaxRetries: 3,
		},
		{
			Path:       "/media/high.mp4",
			Status:     queue.StatusError,
			Priority:   10,
			AddedAt:    added.Add(time.Minute),
			ErrorCount: 2,
			MaxRetries: 3,
			LastError:  "no audio track",
		},
	}
}

func TestNewDefaultsToTable(t *testing.T) {
	_, ok := New(Config{}).(*tableFormatter)
	assert.True(t, ok)

	_, ok = New(Config{Format: FormatJSON}).(*jsonFormatter)
	assert.True(t, ok)
}

func TestTableStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Config{}).FormatStatus(&buf, sampleStatus()))

	out := buf.String()
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "/media/incoming")
	assert.Contains(t, out, "Processed:")
	assert.Contains(t, out, "Cache hits:")
}

func TestTableItemsSortedBySchedulingOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Config{}).FormatItems(&buf, sampleItems()))

	out := buf.String()
	// Higher priority renders first.
	assert.Less(t, strings.Index(out, "high.mp4"), strings.Index(out, "low.mp4"))
	assert.Contains(t, out, "no audio track")
	assert.Contains(t, out, "2/3")
}

func TestTableItemsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Config{}).FormatItems(&buf, nil))
	assert.Contains(t, buf.String(), "queue is empty")
}

func TestTableHistory(t *testing.T) {
	var buf bytes.Buffer
	records := []history.Record{
		{
			Path:       "/media/a.mp4",
			Status:     "completed",
			Duration:   90 * time.Second,
			FinishedAt: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, New(Config{}).FormatHistory(&buf, records))

	out := buf.String()
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "1m30s")
}

func TestTableCacheSizes(t *testing.T) {
	var buf bytes.Buffer
	sizes := map[string]int64{
		"total":            3 * 1024 * 1024,
		"audio_extraction": 3 * 1024 * 1024,
	}
	require.NoError(t, New(Config{}).FormatCacheSizes(&buf, sizes))

	out := buf.String()
	assert.Contains(t, out, "audio_extraction")
	assert.Contains(t, out, "3.0 MiB")
}

func TestJSONStatusRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Config{Format: FormatJSON}).FormatStatus(&buf, sampleStatus()))

	var decoded pipeline.Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleStatus(), decoded)
}

func TestJSONItems(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Config{Format: FormatJSON}).FormatItems(&buf, sampleItems()))

	var decoded []*queue.Item
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "no audio track", decoded[1].LastError)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(3*512*1024))
}
