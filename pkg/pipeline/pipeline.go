package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/akozlov/mediaq/pkg/cache"
	"github.com/akozlov/mediaq/pkg/extract"
	"github.com/akozlov/mediaq/pkg/history"
	"github.com/akozlov/mediaq/pkg/logger"
	"github.com/akozlov/mediaq/pkg/queue"
	"github.com/akozlov/mediaq/pkg/watcher"
	"github.com/akozlov/mediaq/pkg/worker"
)

// pipeline implements the Pipeline interface.
type pipeline struct {
	config Config
	logger logger.Logger

	queue     queue.Queue
	pool      worker.Pool
	watcher   watcher.Watcher
	cache     cache.Store   // nil when caching is disabled
	history   history.Store // nil when history is disabled
	extractor extract.Extractor

	mu      sync.Mutex
	running bool
	stats   Stats
}

// New creates a pipeline and its components from cfg.
//
// Parameters:
//   - cfg: Pipeline configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Pipeline
//   - Error if any component cannot be constructed
func New(cfg Config, log logger.Logger) (Pipeline, error) {
	if cfg.WatchDirectory == "" {
		return nil, ErrNoWatchDirectory
	}
	if cfg.OutputDirectory == "" {
		return nil, ErrNoOutputDirectory
	}

	applyDefaults(&cfg)

	watchDir, err := filepath.Abs(cfg.WatchDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}
	outputDir, err := filepath.Abs(cfg.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	cfg.WatchDirectory = watchDir
	cfg.OutputDirectory = outputDir

	if err := os.MkdirAll(outputDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	p := &pipeline{
		config:    cfg,
		logger:    log,
		extractor: extract.New(log.Component("extractor")),
	}

	if cfg.CacheDirectory != "" {
		store, cacheErr := cache.New(cache.Config{
			Dir:           cfg.CacheDirectory,
			RetentionDays: cfg.RetentionDays,
		}, log.Component("cache"))
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", cacheErr)
		}
		p.cache = store
	}

	if cfg.HistoryDBPath != "" {
		store, histErr := history.New(history.Config{
			DBPath: cfg.HistoryDBPath,
		}, log.Component("history"))
		if histErr != nil {
			return nil, fmt.Errorf("failed to initialize history: %w", histErr)
		}
		p.history = store
	}

	q, err := queue.New(queue.Config{
		PersistenceDir: filepath.Join(outputDir, ".queue"),
	}, log.Component("queue"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	p.queue = q

	q.RegisterCallback(queue.EventStatusChanged, p.onStatusChanged)

	processFn := cfg.ProcessFunc
	if processFn == nil {
		processFn = p.processFile
	}

	p.pool = worker.New(worker.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		Interval:      cfg.ProcessingInterval,
	}, q, processFn, log.Component("worker"))

	w, err := watcher.New(watcher.Config{
		Directory:              watchDir,
		Patterns:               cfg.FilePatterns,
		MinFileAge:             cfg.MinFileAge,
		StabilityCheckInterval: cfg.StabilityCheckInterval,
	}, log.Component("watcher"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize watcher: %w", err)
	}
	p.watcher = w

	log.Info("pipeline initialized",
		"watch_dir", watchDir,
		"output_dir", outputDir,
		"max_concurrent", cfg.MaxConcurrent,
		"caching", p.cache != nil)

	return p, nil
}

// applyDefaults fills unset config fields.
func applyDefaults(cfg *Config) {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ProcessingInterval <= 0 {
		cfg.ProcessingInterval = time.Second
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "m4a"
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = "medium"
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 30 * time.Second
	}
}

// Start implements Pipeline.Start.
func (p *pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	if err := p.pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	if err := p.watcher.Start(p.onFileDetected); err != nil {
		p.pool.Stop(p.config.StopTimeout)
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	p.running = true
	p.logger.Info("pipeline started")
	return nil
}

// Stop implements Pipeline.Stop.
func (p *pipeline) Stop() bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return true
	}
	p.running = false
	p.mu.Unlock()

	// Quiesce input before draining workers.
	if err := p.watcher.Stop(); err != nil && !errors.Is(err, watcher.ErrNotStarted) {
		p.logger.Warn("failed to stop watcher", "error", err)
	}

	drained := p.pool.Stop(p.config.StopTimeout)
	if drained {
		p.logger.Info("pipeline stopped")
	} else {
		p.logger.Warn("pipeline stopped with work still in flight")
	}

	return drained
}

// IsRunning implements Pipeline.IsRunning.
func (p *pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.running
}

// Status implements Pipeline.Status.
func (p *pipeline) Status() Status {
	p.mu.Lock()
	running := p.running
	stats := p.stats
	p.mu.Unlock()

	return Status{
		Running:         running,
		WatchDirectory:  p.config.WatchDirectory,
		OutputDirectory: p.config.OutputDirectory,
		Stats:           stats,
		Monitor:         p.watcher.Status(),
		Queue:           p.queue.Stats(),
	}
}

// RetryErrors implements Pipeline.RetryErrors.
func (p *pipeline) RetryErrors() int {
	count := p.queue.RetryAllErrors()
	p.logger.Info("errored files reset for retry", "count", count)
	return count
}

// ClearCompleted implements Pipeline.ClearCompleted.
func (p *pipeline) ClearCompleted() int {
	count := p.queue.ClearCompleted()
	p.logger.Info("completed files cleared", "count", count)
	return count
}

// Queue implements Pipeline.Queue.
func (p *pipeline) Queue() queue.Queue {
	return p.queue
}

// Close implements Pipeline.Close.
func (p *pipeline) Close() error {
	p.Stop()

	if p.history != nil {
		if err := p.history.Close(); err != nil {
			return fmt.Errorf("failed to close history store: %w", err)
		}
	}

	return nil
}

// onFileDetected is the watcher callback: validate and enqueue.
func (p *pipeline) onFileDetected(path string) {
	p.logger.Info("new file detected", "file", filepath.Base(path))

	p.mu.Lock()
	p.stats.Detected++
	p.mu.Unlock()

	// Validation rides on the extraction toolchain; when the caller
	// supplies its own processing function it owns validation too.
	if p.config.ProcessFunc == nil {
		if ok, reason := p.extractor.CheckVideoFile(context.Background(), path); !ok {
			p.logger.Warn("rejecting invalid video file",
				"file", filepath.Base(path),
				"reason", reason)
			return
		}
	}

	metadata := map[string]interface{}{
		"source_path":      path,
		"output_format":    p.config.AudioFormat,
		"quality":          p.config.AudioQuality,
		"output_directory": p.config.OutputDirectory,
	}

	_, err := p.queue.Add(path, queue.AddOptions{
		Metadata:   metadata,
		MaxRetries: p.config.MaxRetries,
	})
	if err != nil {
		if errors.Is(err, queue.ErrAlreadyQueued) {
			p.logger.Info("file already in queue, skipping", "file", filepath.Base(path))
			return
		}
		p.logger.Error("failed to queue file", "path", path, "error", err)
	}
}

// onStatusChanged keeps the pipeline counters and the outcome history
// in step with queue transitions.
//
// Runs under the queue lock: it must not call back into the queue.
func (p *pipeline) onStatusChanged(item *queue.Item) {
	switch item.Status {
	case queue.StatusCompleted:
		p.mu.Lock()
		p.stats.Processed++
		p.mu.Unlock()
	case queue.StatusError, queue.StatusFailed:
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
	default:
		return
	}

	if p.history == nil || !item.Status.IsTerminal() {
		return
	}

	finished := time.Now()
	if item.EndedAt != nil {
		finished = *item.EndedAt
	}

	if err := p.history.Append(history.Record{
		Path:       item.Path,
		Status:     string(item.Status),
		Priority:   item.Priority,
		ErrorCount: item.ErrorCount,
		LastError:  item.LastError,
		Duration:   item.ProcessingTime(),
		FinishedAt: finished,
	}); err != nil {
		p.logger.Error("failed to record outcome", "path", item.Path, "error", err)
	}
}

// processFile is the default processing function: cache-aware ffmpeg
// audio extraction.
func (p *pipeline) processFile(path string, metadata map[string]interface{}) (bool, error) {
	format := metadataString(metadata, "output_format", p.config.AudioFormat)
	quality := metadataString(metadata, "quality", p.config.AudioQuality)
	outputDir := metadataString(metadata, "output_directory", p.config.OutputDirectory)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outputPath := filepath.Join(outputDir, base+"."+format)

	cacheKey := p.cacheKey(path, quality, format)

	// A prior run may have produced this exact output already.
	if p.cache != nil && cacheKey != "" {
		var cachedOutput string
		if p.cache.GetJSON(cacheNamespace, cacheKey, &cachedOutput) {
			if _, err := os.Stat(cachedOutput); err == nil {
				p.logger.Info("using cached audio file",
					"file", filepath.Base(cachedOutput))
				p.mu.Lock()
				p.stats.CacheHits++
				p.mu.Unlock()
				return true, nil
			}
		}
	}

	if err := p.extractor.Extract(context.Background(), path, outputPath, quality); err != nil {
		return false, err
	}

	if p.cache != nil && cacheKey != "" {
		p.cache.StoreJSON(cacheNamespace, cacheKey, outputPath)
	}

	return true, nil
}

// cacheKey builds the semantic cache key for one extraction. Empty
// when the source file cannot be stat'd.
func (p *pipeline) cacheKey(path, quality, format string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("%s|%d|%s|%s", path, info.ModTime().Unix(), quality, format)
}

// metadataString reads a string metadata value with a fallback.
func metadataString(metadata map[string]interface{}, key, fallback string) string {
	if v, ok := metadata[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
