// Package journal provides feed.JournalStorage implementations: an
// in-memory map of slices and a store over an ordered key-value engine.
package journal

import (
	"sync"

	"feedstore/internal/feed"
)

// MemoryJournalStorage keeps every journal as a slice in a map. Commits are
// applied one operation at a time and are not rolled back on failure. Safe
// for concurrent use.
type MemoryJournalStorage struct {
	mu       sync.RWMutex
	journals map[string][][]byte
	counters feed.JournalCounters
	logger   feed.Logger
}

// NewMemoryJournalStorage creates an empty store. A nil logger discards
// output.
func NewMemoryJournalStorage(logger feed.Logger) *MemoryJournalStorage {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &MemoryJournalStorage{
		journals: make(map[string][][]byte),
		logger:   logger,
	}
}

func (s *MemoryJournalStorage) Read(journalName string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Reads++
	s.counters.Record(journalName)

	entries := s.journals[journalName]
	out := make([][]byte, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryJournalStorage) Exists(journalName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.journals[journalName]
	return ok, nil
}

func (s *MemoryJournalStorage) GetAllJournals() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.journals))
	for name := range s.journals {
		names = append(names, name)
	}
	return names, nil
}

// Commit applies m's operations to m.JournalName in order and stops at the
// first one that fails. Earlier operations stay applied.
func (s *MemoryJournalStorage) Commit(m *feed.JournalMutation) feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := m.JournalName
	for i, op := range m.Operations {
		switch op := op.(type) {
		case feed.Append:
			if op.Value == nil {
				s.logger.Warn("journal commit failed", "journal", name, "index", i, "reason", "missing value")
				return feed.Failure
			}
			s.journals[name] = append(s.journals[name], op.Value)
			s.counters.Appends++
		case feed.Copy:
			if _, exists := s.journals[op.To]; exists {
				s.logger.Warn("journal commit failed", "journal", name, "index", i, "reason", "copy target exists", "to", op.To)
				return feed.Failure
			}
			entries, ok := s.journals[name]
			if !ok {
				continue
			}
			snapshot := make([][]byte, len(entries))
			copy(snapshot, entries)
			s.journals[op.To] = snapshot
			s.counters.Copies++
		case feed.DeleteJournal:
			if _, ok := s.journals[name]; ok {
				s.counters.Deletes++
			}
			delete(s.journals, name)
		default:
			s.logger.Warn("journal commit failed", "journal", name, "index", i, "reason", "unrecognized operation")
			return feed.Failure
		}
		s.counters.Record(name)
	}
	return feed.Success
}

// DeleteAll removes every journal.
func (s *MemoryJournalStorage) DeleteAll() feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Deletes += len(s.journals)
	s.journals = make(map[string][][]byte)
	return feed.Success
}

func (s *MemoryJournalStorage) Dump() feed.JournalCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters.Clone()
}

var _ feed.JournalStorage = (*MemoryJournalStorage)(nil)
