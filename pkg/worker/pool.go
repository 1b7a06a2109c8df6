package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/semaphore"

	"github.com/akozlov/mediaq/pkg/logger"
	"github.com/akozlov/mediaq/pkg/queue"
)

// pool implements the Pool interface.
type pool struct {
	config  Config
	source  Source
	process ProcessFunc
	logger  logger.Logger
	clock   clock.Clock

	// sem enforces the concurrency ceiling; WaitAll drains by
	// acquiring the full weight.
	sem    *semaphore.Weighted
	active int32

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a worker pool over the given source and processing
// function.
//
// Parameters:
//   - cfg: Pool configuration
//   - src: Work source (normally the queue)
//   - fn: Processing function executed per item
//   - log: Logger instance
func New(cfg Config, src Source, fn ProcessFunc, log logger.Logger) Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &pool{
		config:  cfg,
		source:  src,
		process: fn,
		logger:  log,
		clock:   cfg.Clock,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Start implements Pool.Start.
func (p *pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyStarted
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})

	go p.dispatchLoop(p.stopChan, p.done)

	p.logger.Info("worker pool started",
		"max_concurrent", p.config.MaxConcurrent,
		"interval", p.config.Interval)

	return nil
}

// Stop implements Pool.Stop.
func (p *pool) Stop(timeout time.Duration) bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return true
	}
	p.running = false
	close(p.stopChan)
	done := p.done
	p.mu.Unlock()

	// The dispatch loop observes stopChan between ticks.
	<-done

	drained := p.WaitAll(timeout)
	if drained {
		p.logger.Info("worker pool stopped")
	} else {
		p.logger.Warn("worker pool stop timed out with work in flight",
			"active", p.ActiveCount())
	}

	return drained
}

// ActiveCount implements Pool.ActiveCount.
func (p *pool) ActiveCount() int {
	return int(atomic.LoadInt32(&p.active))
}

// WaitAll implements Pool.WaitAll.
func (p *pool) WaitAll(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Holding the full weight means no worker is running.
	if err := p.sem.Acquire(ctx, int64(p.config.MaxConcurrent)); err != nil {
		return false
	}

	p.sem.Release(int64(p.config.MaxConcurrent))
	return true
}

// dispatchLoop claims and launches work every tick until stopped.
func (p *pool) dispatchLoop(stopChan <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := p.clock.Ticker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			p.logger.Debug("dispatch loop stopped")
			return

		case <-ticker.C:
			p.dispatchOnce()
		}
	}
}

// dispatchOnce fills free slots with the highest-priority pending items.
func (p *pool) dispatchOnce() {
	free := p.config.MaxConcurrent - p.ActiveCount()
	if free <= 0 {
		return
	}

	batch := p.source.NextBatch(free)
	for _, item := range batch {
		// The slot count above makes this acquire non-blocking; the
		// semaphore is the hard ceiling regardless.
		if !p.sem.TryAcquire(1) {
			p.logger.Warn("no free worker slot for claimed item", "path", item.Path)
			p.source.ReportFailure(item.Path, "no free worker slot")
			continue
		}

		atomic.AddInt32(&p.active, 1)

		go p.runTask(item)

		p.logger.Debug("processing started",
			"path", item.Path,
			"priority", item.Priority)
	}
}

// runTask executes the processing function for one item and reports
// the outcome.
func (p *pool) runTask(item *queue.Item) {
	defer func() {
		atomic.AddInt32(&p.active, -1)
		p.sem.Release(1)
	}()

	ok, err := p.invoke(item)

	switch {
	case err != nil:
		p.source.ReportFailure(item.Path, err.Error())
	case !ok:
		p.source.ReportFailure(item.Path, "processing function returned false")
	default:
		p.source.ReportSuccess(item.Path)
	}
}

// invoke calls the processing function, converting panics into errors.
func (p *pool) invoke(item *queue.Item) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("panic in processing function: %v", r)
			p.logger.Error("processing function panicked",
				"path", item.Path,
				"panic", r)
		}
	}()

	return p.process(item.Path, item.Metadata)
}
