package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"

	"github.com/akozlov/mediaq/pkg/logger"
)

// watcher implements the Watcher interface using fsnotify plus a
// stability ticker.
type watcher struct {
	config Config
	logger logger.Logger
	clock  clock.Clock

	mu       sync.Mutex
	running  bool
	fsw      *fsnotify.Watcher
	callback Callback
	stopChan chan struct{}
	wg       sync.WaitGroup

	// pending and delivered are guarded by mu; they are touched from
	// the event loop, the stability loop, and Status.
	pending   map[string]*pendingEvent
	delivered map[string]struct{}
}

// New creates a watcher for cfg.Directory.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns an error if the configuration is unusable.
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.Directory == "" {
		return nil, ErrDirectoryNotFound
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = []string{"*.mp4", "*.mov", "*.webm", "*.mkv"}
	}
	if cfg.MinFileAge < 0 {
		return nil, fmt.Errorf("min file age must be non-negative")
	}
	if cfg.MinFileAge == 0 {
		cfg.MinFileAge = 5 * time.Second
	}
	if cfg.StabilityCheckInterval <= 0 {
		cfg.StabilityCheckInterval = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	abs, err := filepath.Abs(expandHome(cfg.Directory))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}
	cfg.Directory = abs

	return &watcher{
		config:    cfg,
		logger:    log,
		clock:     cfg.Clock,
		pending:   make(map[string]*pendingEvent),
		delivered: make(map[string]struct{}),
	}, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(callback Callback) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyStarted
	}

	info, err := os.Stat(w.config.Directory)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, w.config.Directory)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(w.config.Directory); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Error("failed to close fsnotify watcher", "error", closeErr)
		}
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	w.fsw = fsw
	w.callback = callback
	w.stopChan = make(chan struct{})
	w.pending = make(map[string]*pendingEvent)
	// A restart clears the delivered set; files still in the
	// directory will be reported again.
	w.delivered = make(map[string]struct{})
	w.running = true

	// Pick up files that arrived while we were not watching; they go
	// through the same stability checks as live arrivals.
	w.scanExistingLocked()

	w.wg.Add(2)
	go w.eventLoop(fsw, w.stopChan)
	go w.stabilityLoop(w.stopChan)

	w.logger.Info("watcher started",
		"directory", w.config.Directory,
		"patterns", strings.Join(w.config.Patterns, ", "))

	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotStarted
	}

	w.running = false
	close(w.stopChan)
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	if err := fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
	}

	w.wg.Wait()

	w.mu.Lock()
	w.pending = make(map[string]*pendingEvent)
	w.callback = nil
	w.mu.Unlock()

	w.logger.Info("watcher stopped")
	return nil
}

// IsRunning implements Watcher.IsRunning.
func (w *watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.running
}

// Status implements Watcher.Status.
func (w *watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Status{
		Running:   w.running,
		Directory: w.config.Directory,
		Patterns:  append([]string(nil), w.config.Patterns...),
		Pending:   len(w.pending),
		Delivered: len(w.delivered),
	}
}

// scanExistingLocked seeds the pending set with files already present
// in the directory. Callers must hold w.mu.
func (w *watcher) scanExistingLocked() {
	entries, err := os.ReadDir(w.config.Directory)
	if err != nil {
		w.logger.Warn("initial scan failed", "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(w.config.Directory, entry.Name())
		w.trackLocked(path)
	}
}

// eventLoop consumes fsnotify events until stopped.
func (w *watcher) eventLoop(fsw *fsnotify.Watcher, stopChan <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-stopChan:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)
		}
	}
}

// handleEvent inserts or refreshes the pending record for a file event.
//
// Create covers both new files and moves into the directory; Write
// marks continued growth. Everything else is irrelevant here: removals
// are handled by the stability check noticing the file is gone.
func (w *watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.trackLocked(event.Name)
}

// trackLocked inserts or updates one pending record. Callers must
// hold w.mu.
func (w *watcher) trackLocked(path string) {
	if !w.matchesPatterns(path) {
		return
	}

	if _, done := w.delivered[path]; done {
		return
	}

	size, err := fileSize(path)
	if err != nil {
		w.logger.Debug("failed to probe file size", "path", path, "error", err)
		return
	}

	now := w.clock.Now()

	if pe, exists := w.pending[path]; exists {
		pe.lastModified = now
		if size != pe.lastSize {
			pe.lastSize = size
			pe.stableTicks = 0
		}
		return
	}

	w.pending[path] = &pendingEvent{
		firstSeen:    now,
		lastModified: now,
		lastSize:     size,
	}

	w.logger.Debug("tracking new file", "path", path, "size", size)
}

// stabilityLoop periodically promotes pending files that have stopped
// changing.
func (w *watcher) stabilityLoop(stopChan <-chan struct{}) {
	defer w.wg.Done()

	ticker := w.clock.Ticker(w.config.StabilityCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return

		case <-ticker.C:
			for _, path := range w.collectStable() {
				w.deliver(path)
			}
		}
	}
}

// collectStable advances every pending record one tick and returns
// the paths that became stable.
func (w *watcher) collectStable() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()

	var stable []string
	var drop []string

	for path, pe := range w.pending {
		size, err := fileSize(path)
		if err != nil {
			if os.IsNotExist(err) {
				w.logger.Debug("pending file disappeared", "path", path)
			} else {
				// A single probe failure retires the pending event;
				// the next filesystem event re-tracks the file.
				w.logger.Warn("failed to probe pending file", "path", path, "error", err)
			}
			drop = append(drop, path)
			continue
		}

		if size == 0 {
			w.logger.Warn("rejecting empty file", "path", path)
			drop = append(drop, path)
			continue
		}

		if size != pe.lastSize {
			pe.lastSize = size
			pe.lastModified = now
			pe.stableTicks = 0
			continue
		}

		pe.stableTicks++

		oldEnough := now.Sub(pe.firstSeen) >= w.config.MinFileAge
		sizeStable := pe.stableTicks >= minStableChecks

		if oldEnough && sizeStable {
			stable = append(stable, path)
			drop = append(drop, path)
			w.delivered[path] = struct{}{}
		}
	}

	for _, path := range drop {
		delete(w.pending, path)
	}

	return stable
}

// deliver invokes the callback for one stable file, containing panics.
func (w *watcher) deliver(path string) {
	w.mu.Lock()
	callback := w.callback
	w.mu.Unlock()

	if callback == nil {
		return
	}

	w.logger.Info("file is stable and ready", "path", path)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("file callback panicked", "path", path, "panic", r)
		}
	}()

	callback(path)
}

// matchesPatterns reports whether the file name matches any configured
// glob, case-insensitively.
func (w *watcher) matchesPatterns(path string) bool {
	name := strings.ToLower(filepath.Base(path))

	for _, pattern := range w.config.Patterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), name); err == nil && ok {
			return true
		}
	}

	return false
}

// fileSize returns the size of a regular file.
func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
