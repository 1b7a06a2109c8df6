package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"github.com/akozlov/mediaq/pkg/logger"
)

// stateFileName is the queue state file inside the persistence directory.
const stateFileName = "queue_state.json"

// stateDocument is the on-disk shape of the persisted queue.
//
// Unknown top-level keys in an existing file are ignored on load;
// missing optional item fields default to their zero values.
type stateDocument struct {
	Queue   map[string]*Item `json:"queue"`
	SavedAt time.Time        `json:"saved_at"`
}

// Store persists queue contents to a JSON file with atomic replace.
//
// The in-memory queue is the source of truth; Save is best-effort and
// a failed write only costs the transitions since the last successful
// one (the at-least-once boundary).
type Store struct {
	dir    string
	logger logger.Logger
}

// NewStore creates a state store rooted at dir.
//
// The directory is created lazily on first save.
func NewStore(dir string, log logger.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log,
	}
}

// Path returns the full path of the state file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

// Save writes every item to the state file.
//
// The document is written to a temporary file and atomically renamed
// into place, so readers always observe a complete file. Transient
// write failures are retried briefly with exponential backoff before
// giving up.
func (s *Store) Save(items map[string]*Item) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create persistence directory: %w", err)
	}

	doc := stateDocument{
		Queue:   items,
		SavedAt: time.Now(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal queue state: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second

	writeOnce := func() error {
		return renameio.WriteFile(s.Path(), data, 0600)
	}

	if err := backoff.Retry(writeOnce, policy); err != nil {
		return fmt.Errorf("failed to write queue state: %w", err)
	}

	s.logger.Debug("queue state persisted", "items", len(items))
	return nil
}

// Load reads the state file and returns the recovered items.
//
// Recovery rules:
//   - missing or unreadable file: empty queue
//   - malformed document or missing "queue" key: empty queue, warning
//   - persisted item whose path no longer exists on disk: skipped
//   - processing items: reset to pending with start/end cleared, since
//     the worker that owned them is gone
//
// Load never fails; every problem degrades to starting empty.
func (s *Store) Load() map[string]*Item {
	items := make(map[string]*Item)

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no queue state file found, starting with empty queue")
		} else {
			s.logger.Warn("failed to read queue state file",
				"path", s.Path(),
				"error", err)
		}
		return items
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("invalid queue state file, starting with empty queue",
			"path", s.Path(),
			"error", err)
		return items
	}

	if doc.Queue == nil {
		s.logger.Warn("queue state file missing queue key, starting with empty queue",
			"path", s.Path())
		return items
	}

	for path, item := range doc.Queue {
		if item == nil {
			continue
		}

		if _, statErr := os.Stat(path); statErr != nil {
			s.logger.Warn("skipping queued file that no longer exists", "path", path)
			continue
		}

		item.Path = path

		// The previous run's worker is gone; the at-least-once
		// contract lets the next run pick the item up again.
		if item.Status == StatusProcessing {
			item.Status = StatusPending
			item.StartedAt = nil
			item.EndedAt = nil
		}

		if item.Metadata == nil {
			item.Metadata = make(map[string]interface{})
		}

		items[path] = item
	}

	s.logger.Info("loaded queue state", "items", len(items))
	return items
}
