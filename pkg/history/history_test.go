package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akozlov/mediaq/pkg/logger"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	s, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "history.db"),
	}, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() }) // nolint:errcheck
	return s
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(Config{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNoDBPath)
}

func TestAppendAndRecent(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(Record{
			Path:       fmt.Sprintf("/media/clip-%d.mp4", i),
			Status:     "completed",
			Duration:   3 * time.Second,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := s.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Newest first.
	assert.Equal(t, "/media/clip-4.mp4", recent[0].Path)
	assert.Equal(t, "/media/clip-3.mp4", recent[1].Path)
	assert.Equal(t, "/media/clip-2.mp4", recent[2].Path)
}

func TestRecentMoreThanStored(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(Record{Path: "/a", Status: "completed"}))

	recent, err := s.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRecentZero(t *testing.T) {
	s := newTestStore(t)

	recent, err := s.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestCountByStatus(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(Record{
			Path:   fmt.Sprintf("/ok-%d", i),
			Status: "completed",
		}))
	}
	require.NoError(t, s.Append(Record{
		Path:       "/bad",
		Status:     "failed",
		ErrorCount: 3,
		LastError:  "no audio track",
	}))

	counts, err := s.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 3, counts["completed"])
	assert.Equal(t, 1, counts["failed"])
}

func TestRecordFieldsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	finished := time.Now().Truncate(time.Second)
	in := Record{
		Path:       "/media/a.mp4",
		Status:     "failed",
		Priority:   7,
		ErrorCount: 2,
		LastError:  "codec not supported",
		Duration:   90 * time.Second,
		FinishedAt: finished,
	}
	require.NoError(t, s.Append(in))

	recent, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	got := recent[0]
	assert.Equal(t, in.Path, got.Path)
	assert.Equal(t, in.Status, got.Status)
	assert.Equal(t, in.Priority, got.Priority)
	assert.Equal(t, in.ErrorCount, got.ErrorCount)
	assert.Equal(t, in.LastError, got.LastError)
	assert.Equal(t, in.Duration, got.Duration)
	assert.True(t, got.FinishedAt.Equal(finished))
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	s, err := New(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, s.Append(Record{Path: "/a", Status: "completed"}))
	require.NoError(t, s.Close())

	s2, err := New(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	defer s2.Close() // nolint:errcheck

	counts, err := s2.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["completed"])
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Append(Record{Path: "/a", Status: "completed"}), ErrStoreClosed)

	_, err := s.Recent(1)
	assert.ErrorIs(t, err, ErrStoreClosed)

	// Double close is harmless.
	assert.NoError(t, s.Close())
}
