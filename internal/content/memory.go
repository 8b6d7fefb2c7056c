// Package content provides feed.ContentStorage implementations: an
// in-memory map and a store over an ordered key-value engine.
package content

import (
	"strings"
	"sync"

	"feedstore/internal/feed"
)

// MemoryContentStorage keeps every entry in a map. Commits are applied one
// operation at a time and are not rolled back on failure. Safe for
// concurrent use; each call holds the lock for its whole duration.
type MemoryContentStorage struct {
	mu       sync.RWMutex
	store    map[string][]byte
	counters feed.ContentCounters
	logger   feed.Logger
}

// NewMemoryContentStorage creates an empty store. A nil logger discards
// output.
func NewMemoryContentStorage(logger feed.Logger) *MemoryContentStorage {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &MemoryContentStorage{
		store:  make(map[string][]byte),
		logger: logger,
	}
}

func (s *MemoryContentStorage) Get(keys []string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Gets++

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, ok := s.store[key]
		if !ok || len(value) == 0 {
			s.logger.Debug("content not found", "key", key)
			continue
		}
		out[key] = value
	}
	return out, nil
}

func (s *MemoryContentStorage) GetAll(prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.GetAlls++

	out := make(map[string][]byte)
	for key, value := range s.store {
		if strings.HasPrefix(key, prefix) {
			out[key] = value
		}
	}
	return out, nil
}

func (s *MemoryContentStorage) GetAllKeys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}
	return keys, nil
}

// Commit applies m's operations in order and stops at the first one that
// fails. Earlier operations stay applied.
func (s *MemoryContentStorage) Commit(m *feed.ContentMutation) feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range m.Operations {
		switch op := op.(type) {
		case feed.Upsert:
			if reason := validateUpsert(op); reason != "" {
				s.logger.Warn("content commit failed", "index", i, "key", op.Key, "reason", reason)
				return feed.Failure
			}
			if _, exists := s.store[op.Key]; exists {
				s.counters.Updates++
			} else {
				s.counters.Inserts++
			}
			s.store[op.Key] = op.Value
		case feed.Delete:
			if _, exists := s.store[op.Key]; exists {
				s.counters.Deletes++
			}
			delete(s.store, op.Key)
		case feed.DeleteByPrefix:
			for key := range s.store {
				if strings.HasPrefix(key, op.Prefix) {
					delete(s.store, key)
					s.counters.Deletes++
				}
			}
		case feed.DeleteAll:
			s.counters.Deletes += len(s.store)
			s.store = make(map[string][]byte)
		default:
			s.logger.Warn("content commit failed", "index", i, "reason", "unrecognized operation")
			return feed.Failure
		}
	}
	return feed.Success
}

func (s *MemoryContentStorage) Dump() feed.ContentCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.counters
	c.Size = len(s.store)
	return c
}

// validateUpsert returns why op cannot be applied, or "" if it can.
func validateUpsert(op feed.Upsert) string {
	switch {
	case op.Key == "":
		return "missing key"
	case op.Value == nil:
		return "missing value"
	case len(op.Value) == 0:
		return "empty value"
	}
	return ""
}

var _ feed.ContentStorage = (*MemoryContentStorage)(nil)
