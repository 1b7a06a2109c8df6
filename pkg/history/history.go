package history

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/akozlov/mediaq/pkg/logger"
)

// Bucket names.
var (
	bucketOutcomes = []byte("outcomes") // time-ordered key -> Record
	bucketCounts   = []byte("counts")   // status name -> uint64
)

// store implements the Store interface using BoltDB.
type store struct {
	db     *bolt.DB
	logger logger.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a history store backed by a BoltDB file.
//
// Parameters:
//   - cfg: Store configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if the database cannot be opened
func New(cfg Config, log logger.Logger) (Store, error) {
	if cfg.DBPath == "" {
		return nil, ErrNoDBPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketOutcomes); createErr != nil {
			return fmt.Errorf("failed to create outcomes bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketCounts); createErr != nil {
			return fmt.Errorf("failed to create counts bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Info("history store initialized", "db_path", dbPath)

	return &store{
		db:     db,
		logger: log,
	}, nil
}

// Append implements Store.Append.
func (s *store) Append(rec Record) error {
	if err := s.check(); err != nil {
		return err
	}

	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		outcomes := tx.Bucket(bucketOutcomes)
		counts := tx.Bucket(bucketCounts)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if err := outcomes.Put(outcomeKey(rec), data); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}

		total := uint64(0)
		if prev := counts.Get([]byte(rec.Status)); len(prev) == 8 {
			total = binary.BigEndian.Uint64(prev)
		}
		total++

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, total)
		if err := counts.Put([]byte(rec.Status), buf); err != nil {
			return fmt.Errorf("failed to update counts: %w", err)
		}

		s.logger.Debug("outcome recorded",
			"path", rec.Path,
			"status", rec.Status)

		return nil
	})
}

// Recent implements Store.Recent.
func (s *store) Recent(n int) ([]Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	records := make([]Record, 0, n)

	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketOutcomes).Cursor()

		for k, v := cursor.Last(); k != nil && len(records) < n; k, v = cursor.Prev() {
			var rec Record
			if unmarshalErr := json.Unmarshal(v, &rec); unmarshalErr != nil {
				s.logger.Warn("failed to unmarshal history record",
					"key", string(k),
					"error", unmarshalErr)
				continue // Skip invalid entries.
			}

			records = append(records, rec)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return records, nil
}

// CountByStatus implements Store.CountByStatus.
func (s *store) CountByStatus() (map[string]int, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCounts).ForEach(func(k, v []byte) error {
			if len(v) == 8 {
				counts[string(k)] = int(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read counts: %w", err)
	}

	return counts, nil
}

// Close implements Store.Close.
func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Info("history store closed")
	return nil
}

// check returns an error if the store has been closed.
func (s *store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// outcomeKey builds a time-ordered unique key for a record.
//
// Nanosecond timestamp first so a cursor walks records in finish
// order; the path suffix breaks same-instant collisions.
func outcomeKey(rec Record) []byte {
	key := make([]byte, 8, 8+len(rec.Path)+1)
	binary.BigEndian.PutUint64(key, uint64(rec.FinishedAt.UnixNano()))
	key = append(key, '|')
	key = append(key, rec.Path...)
	return key
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
