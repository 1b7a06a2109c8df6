package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/akozlov/mediaq/pkg/logger"
)

// defaultMaxRetries caps total attempts when AddOptions does not set one.
const defaultMaxRetries = 3

// queue implements the Queue interface.
//
// A single lock guards the item map, the per-status index sets, and
// callback dispatch, so observers see transitions in commit order.
type queue struct {
	logger logger.Logger
	store  *Store

	mu    sync.Mutex
	items map[string]*Item

	// Per-status index sets; every item's path is in exactly one.
	index map[Status]map[string]struct{}

	callbacks map[Event][]Callback
}

// New creates a queue, loading persisted state if cfg.PersistenceDir
// is set.
//
// Parameters:
//   - cfg: Queue configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Queue
//   - Error reserved for future construction failures; currently always nil
func New(cfg Config, log logger.Logger) (Queue, error) {
	q := &queue{
		logger:    log,
		items:     make(map[string]*Item),
		index:     make(map[Status]map[string]struct{}, len(Statuses)),
		callbacks: make(map[Event][]Callback),
	}

	for _, status := range Statuses {
		q.index[status] = make(map[string]struct{})
	}

	if cfg.PersistenceDir != "" {
		q.store = NewStore(cfg.PersistenceDir, log)
		for path, item := range q.store.Load() {
			q.items[path] = item
			q.index[item.Status][path] = struct{}{}
		}
	}

	log.Info("queue initialized",
		"items", len(q.items),
		"persistence", cfg.PersistenceDir != "")

	return q, nil
}

// Add implements Queue.Add.
func (q *queue) Add(path string, opts AddOptions) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.items[path]; exists {
		return nil, ErrAlreadyQueued
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Metadata == nil {
		opts.Metadata = make(map[string]interface{})
	}

	item := &Item{
		Path:       path,
		Status:     StatusPending,
		Priority:   opts.Priority,
		AddedAt:    time.Now(),
		MaxRetries: opts.MaxRetries,
		Metadata:   opts.Metadata,
	}

	q.items[path] = item
	q.index[StatusPending][path] = struct{}{}
	q.persistLocked()
	q.fireLocked(EventAdded, item)

	q.logger.Info("file added to queue", "path", path, "priority", opts.Priority)
	return item.clone(), nil
}

// Remove implements Queue.Remove.
func (q *queue) Remove(path string) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.removeLocked(path)
}

// removeLocked deletes an item and its index entry. Callers must hold q.mu.
func (q *queue) removeLocked(path string) (*Item, error) {
	item, exists := q.items[path]
	if !exists {
		return nil, ErrNotFound
	}

	delete(q.items, path)
	delete(q.index[item.Status], path)
	q.persistLocked()
	q.fireLocked(EventRemoved, item)

	q.logger.Info("file removed from queue", "path", path)
	return item, nil
}

// Get implements Queue.Get.
func (q *queue) Get(path string) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, exists := q.items[path]
	if !exists {
		return nil, ErrNotFound
	}

	return item.clone(), nil
}

// ListByStatus implements Queue.ListByStatus.
func (q *queue) ListByStatus(status Status) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	paths := make([]string, 0, len(q.index[status]))
	for path := range q.index[status] {
		paths = append(paths, path)
	}

	return paths
}

// States implements Queue.States.
func (q *queue) States() map[string]*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]*Item, len(q.items))
	for path, item := range q.items {
		out[path] = item.clone()
	}

	return out
}

// Stats implements Queue.Stats.
func (q *queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Total:      len(q.items),
		Pending:    len(q.index[StatusPending]),
		Processing: len(q.index[StatusProcessing]),
		Completed:  len(q.index[StatusCompleted]),
		Error:      len(q.index[StatusError]),
		Failed:     len(q.index[StatusFailed]),
	}
}

// NextBatch implements Queue.NextBatch.
func (q *queue) NextBatch(n int) []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.index[StatusPending]) == 0 {
		return nil
	}

	pending := make([]*Item, 0, len(q.index[StatusPending]))
	for path := range q.index[StatusPending] {
		pending = append(pending, q.items[path])
	}

	// Priority descending, then added time ascending, then path for a
	// deterministic order within one process.
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		if !pending[i].AddedAt.Equal(pending[j].AddedAt) {
			return pending[i].AddedAt.Before(pending[j].AddedAt)
		}
		return pending[i].Path < pending[j].Path
	})

	if n > len(pending) {
		n = len(pending)
	}

	batch := make([]*Item, 0, n)
	now := time.Now()
	for _, item := range pending[:n] {
		q.transitionLocked(item, StatusProcessing)
		start := now
		item.StartedAt = &start
		item.EndedAt = nil
		batch = append(batch, item.clone())
	}

	q.persistLocked()
	return batch
}

// ReportSuccess implements Queue.ReportSuccess.
func (q *queue) ReportSuccess(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, exists := q.items[path]
	if !exists || item.Status != StatusProcessing {
		q.logger.Warn("success reported for file not processing", "path", path)
		return
	}

	now := time.Now()
	item.EndedAt = &now
	q.transitionLocked(item, StatusCompleted)
	q.persistLocked()

	q.logger.Info("file processed", "path", path, "duration", item.ProcessingTime())
}

// ReportFailure implements Queue.ReportFailure.
func (q *queue) ReportFailure(path string, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, exists := q.items[path]
	if !exists || item.Status != StatusProcessing {
		q.logger.Warn("failure reported for file not processing", "path", path)
		return
	}

	now := time.Now()
	item.EndedAt = &now
	item.ErrorCount++
	item.LastError = message

	// The attempt that reaches the cap is the last one.
	if item.ErrorCount >= item.MaxRetries {
		q.transitionLocked(item, StatusFailed)
		q.logger.Error("file failed permanently",
			"path", path,
			"attempts", item.ErrorCount,
			"error", message)
	} else {
		q.transitionLocked(item, StatusError)
		q.logger.Warn("file processing attempt failed",
			"path", path,
			"attempt", item.ErrorCount,
			"max_retries", item.MaxRetries,
			"error", message)
	}

	q.persistLocked()
}

// Retry implements Queue.Retry.
func (q *queue) Retry(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.retryLocked(path)
}

// retryLocked resets one error item to pending. Callers must hold q.mu.
func (q *queue) retryLocked(path string) bool {
	item, exists := q.items[path]
	if !exists || !item.CanRetry() {
		return false
	}

	item.StartedAt = nil
	item.EndedAt = nil
	q.transitionLocked(item, StatusPending)
	q.persistLocked()

	q.logger.Info("file reset for retry", "path", path, "attempts_used", item.ErrorCount)
	return true
}

// RetryAllErrors implements Queue.RetryAllErrors.
func (q *queue) RetryAllErrors() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	paths := make([]string, 0, len(q.index[StatusError]))
	for path := range q.index[StatusError] {
		paths = append(paths, path)
	}

	count := 0
	for _, path := range paths {
		if q.retryLocked(path) {
			count++
		}
	}

	q.logger.Info("errored files reset for retry", "count", count)
	return count
}

// ClearCompleted implements Queue.ClearCompleted.
func (q *queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	paths := make([]string, 0, len(q.index[StatusCompleted]))
	for path := range q.index[StatusCompleted] {
		paths = append(paths, path)
	}

	count := 0
	for _, path := range paths {
		if _, err := q.removeLocked(path); err == nil {
			count++
		}
	}

	q.logger.Info("completed files cleared", "count", count)
	return count
}

// RegisterCallback implements Queue.RegisterCallback.
func (q *queue) RegisterCallback(event Event, fn Callback) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.callbacks[event] = append(q.callbacks[event], fn)
}

// transitionLocked moves an item to a new status and keeps the index
// sets consistent, firing status_changed. Callers must hold q.mu.
func (q *queue) transitionLocked(item *Item, to Status) {
	from := item.Status
	if from == to {
		return
	}

	delete(q.index[from], item.Path)
	item.Status = to
	q.index[to][item.Path] = struct{}{}

	q.logger.Debug("status changed",
		"path", item.Path,
		"from", from,
		"to", to)

	q.fireLocked(EventStatusChanged, item)
}

// fireLocked dispatches callbacks for an event. Callers must hold q.mu.
//
// Panicking callbacks are contained so a misbehaving subscriber
// cannot corrupt queue state.
func (q *queue) fireLocked(event Event, item *Item) {
	snapshot := item.clone()
	for _, fn := range q.callbacks[event] {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.logger.Error("queue callback panicked",
						"event", event,
						"path", item.Path,
						"panic", r)
				}
			}()
			fn(snapshot)
		}()
	}
}

// persistLocked saves the queue if persistence is enabled. Callers
// must hold q.mu.
//
// Persistence failures are logged and do not disturb in-memory state.
func (q *queue) persistLocked() {
	if q.store == nil {
		return
	}

	if err := q.store.Save(q.items); err != nil {
		q.logger.Error("failed to persist queue state", "error", err)
	}
}
