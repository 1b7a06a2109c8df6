package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akozlov/mediaq/pkg/logger"
)

// arrivals collects callback invocations safely across goroutines.
type arrivals struct {
	mu    sync.Mutex
	paths []string
}

func (a *arrivals) add(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, path)
}

func (a *arrivals) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.paths...)
}

func (a *arrivals) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.paths)
}

// newTestWatcher builds a watcher with short intervals so tests run
// quickly.
func newTestWatcher(t *testing.T, dir string) Watcher {
	t.Helper()

	w, err := New(Config{
		Directory:              dir,
		MinFileAge:             50 * time.Millisecond,
		StabilityCheckInterval: 20 * time.Millisecond,
	}, logger.Noop())
	require.NoError(t, err)
	return w
}

func startWatcher(t *testing.T, w Watcher, cb Callback) {
	t.Helper()

	require.NoError(t, w.Start(cb))
	t.Cleanup(func() {
		if w.IsRunning() {
			_ = w.Stop() // nolint:errcheck
		}
	})
}

func TestNewMissingDirectoryConfig(t *testing.T) {
	_, err := New(Config{}, logger.Noop())
	assert.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestStartMissingDirectory(t *testing.T) {
	w, err := New(Config{
		Directory: filepath.Join(t.TempDir(), "nope"),
	}, logger.Noop())
	require.NoError(t, err)

	assert.ErrorIs(t, w.Start(func(string) {}), ErrDirectoryNotFound)
}

func TestStartAlreadyStarted(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())
	startWatcher(t, w, func(string) {})

	assert.ErrorIs(t, w.Start(func(string) {}), ErrAlreadyStarted)
}

func TestStopNotStarted(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())
	assert.ErrorIs(t, w.Stop(), ErrNotStarted)
}

func TestStableFileDeliveredOnce(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, got.add)

	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0600))

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{path}, got.snapshot())

	// No duplicate delivery after the fact.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, got.count())
}

func TestEmptyFileNeverDelivered(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, got.add)

	path := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 0, got.count())
}

func TestGrowingFileHeldBack(t *testing.T) {
	dir := t.TempDir()

	// Writes land more often than the stability ticker fires, so the
	// size never looks unchanged across two consecutive checks.
	w, err := New(Config{
		Directory:              dir,
		MinFileAge:             50 * time.Millisecond,
		StabilityCheckInterval: 50 * time.Millisecond,
	}, logger.Noop())
	require.NoError(t, err)

	var got arrivals
	startWatcher(t, w, got.add)

	path := filepath.Join(dir, "growing.mp4")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	require.NoError(t, err)

	chunk := make([]byte, 1024)
	for i := 0; i < 8; i++ {
		_, err = f.Write(chunk)
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(25 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	assert.Equal(t, 0, got.count(), "delivered while still growing")

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStabilityChecksWithMockClock(t *testing.T) {
	dir := t.TempDir()

	// The file exists before Start so the initial scan tracks it at
	// mock time zero; every stability check is then an explicit
	// clock advance rather than a wall-clock sleep.
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0600))

	mock := clock.NewMock()
	w, err := New(Config{
		Directory:              dir,
		MinFileAge:             5 * time.Second,
		StabilityCheckInterval: 2 * time.Second,
		Clock:                  mock,
	}, logger.Noop())
	require.NoError(t, err)

	var got arrivals
	startWatcher(t, w, got.add)

	// Let the stability goroutine register its ticker with the mock.
	time.Sleep(20 * time.Millisecond)

	// tick gives the stability goroutine wall time to consume the
	// tick the mock just fired.
	tick := func() {
		mock.Add(2 * time.Second)
		time.Sleep(30 * time.Millisecond)
	}

	// Tick 1: first unchanged-size observation, age 2s.
	// Tick 2: second unchanged-size observation, but age 4s is still
	// under the 5s floor, so the file is held back.
	tick()
	tick()
	assert.Equal(t, 0, got.count(), "delivered before the age floor")

	// Tick 3: age 6s crosses the floor with the size long stable.
	tick()

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{path}, got.snapshot())

	// Further ticks never re-deliver.
	tick()
	tick()
	assert.Equal(t, 1, got.count())
}

func TestNonMatchingFileIgnored(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, got.add)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.mp4.txt"), []byte("x"), 0600))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, got.count())
}

func TestPatternMatchingCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, got.add)

	path := filepath.Join(dir, "CLIP.MP4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestInitialScanPicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()

	// File exists before the watcher starts.
	path := filepath.Join(dir, "old.mkv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, got.add)

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{path}, got.snapshot())
}

func TestRestartClearsDeliveredSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.webm")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, got.add)

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	startWatcher(t, w, got.add)

	// The file is still there and the delivered set was reset.
	assert.Eventually(t, func() bool {
		return got.count() == 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestCallbackPanicContained(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	var got arrivals
	startWatcher(t, w, func(path string) {
		got.add(path)
		panic("bad callback")
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("1"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mp4"), []byte("2"), 0600))

	// Both files are delivered despite the first panic.
	assert.Eventually(t, func() bool {
		return got.count() == 2
	}, 3*time.Second, 10*time.Millisecond)

	assert.True(t, w.IsRunning())
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	status := w.Status()
	assert.False(t, status.Running)
	assert.Equal(t, dir, status.Directory)
	assert.NotEmpty(t, status.Patterns)

	var got arrivals
	startWatcher(t, w, got.add)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0600))

	assert.Eventually(t, func() bool {
		return got.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	status = w.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Delivered)
	assert.Equal(t, 0, status.Pending)
}
