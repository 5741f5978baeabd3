// Package store is the Pebble-backed local cache the sync core keeps
// consistent with the server: users, channels, messages, reaction
// outbox rows and channel-list query results, addressed by id with
// bulk upserts batched per call.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"chatsync/pkg/logger"
	"chatsync/pkg/telemetry"
)

// ErrNotOpen is returned when the store is used before Open.
var ErrNotOpen = errors.New("store not opened; call store.Open first")

// Store wraps an opened Pebble database.
type Store struct {
	db   *pebble.DB
	path string

	// observed tracks when a message row was last written through the
	// cache-observed upsert path. Kept in memory only; the write path
	// for optimistic local writes never touches it.
	obsMu    sync.RWMutex
	observed map[string]time.Time
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path, observed: map[string]time.Time{}}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and usable.
func (s *Store) Ready() bool { return s != nil && s.db != nil }

// get reads and decodes one JSON value. Missing keys return (false, nil).
func (s *Store) get(key []byte, out any) (bool, error) {
	if s.db == nil {
		return false, ErrNotOpen
	}
	v, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, out); err != nil {
		return false, fmt.Errorf("invalid stored JSON at %s: %w", key, err)
	}
	return true, nil
}

// apply commits a write batch. Every bulk upsert funnels through here.
func (s *Store) apply(wb *pebble.Batch) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if err := s.db.Apply(wb, pebble.Sync); err != nil {
		logger.Error("apply_batch_failed", "error", err)
		return err
	}
	telemetry.StoreBatchWrites.Inc()
	return nil
}

func setJSON(wb *pebble.Batch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", key, err)
	}
	return wb.Set(key, data, nil)
}

// LastObserved returns when the given message id was last written via
// the cache-observed path, if ever.
func (s *Store) LastObserved(msgID string) (time.Time, bool) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	t, ok := s.observed[msgID]
	return t, ok
}

func (s *Store) markObserved(msgIDs []string) {
	now := time.Now().UTC()
	s.obsMu.Lock()
	for _, id := range msgIDs {
		s.observed[id] = now
	}
	s.obsMu.Unlock()
}
