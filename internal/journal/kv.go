package journal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"feedstore/internal/feed"
	"feedstore/internal/kv"
)

// Key layout inside the engine:
//
//	m <len:4> <name>          -> next sequence number (8 bytes, big endian)
//	e <len:4> <name> <seq:8>  -> entry value
//
// The length prefix keeps one journal's entries from matching another
// journal whose name extends it.
const (
	metaTag  = 'm'
	entryTag = 'e'
)

func nameKey(tag byte, name string) []byte {
	b := make([]byte, 0, 5+len(name)+8)
	b = append(b, tag)
	b = binary.BigEndian.AppendUint32(b, uint32(len(name)))
	return append(b, name...)
}

func metaKey(name string) []byte { return nameKey(metaTag, name) }

func entriesPrefix(name string) []byte { return nameKey(entryTag, name) }

func entryKey(name string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(entriesPrefix(name), seq)
}

func decodeName(key []byte) (string, error) {
	if len(key) < 5 {
		return "", fmt.Errorf("malformed journal key %q", key)
	}
	n := int(binary.BigEndian.Uint32(key[1:5]))
	if len(key) < 5+n {
		return "", fmt.Errorf("malformed journal key %q", key)
	}
	return string(key[5 : 5+n]), nil
}

// KVJournalStorage stores journals in a kv.Store. Each append writes the
// entry and the journal's next sequence number in one batch.
type KVJournalStorage struct {
	mu       sync.Mutex
	store    kv.Store
	counters feed.JournalCounters
	logger   feed.Logger
}

// NewKVJournalStorage wraps store. The caller keeps ownership of store.
func NewKVJournalStorage(store kv.Store, logger feed.Logger) *KVJournalStorage {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &KVJournalStorage{store: store, logger: logger}
}

func (s *KVJournalStorage) Read(journalName string) ([][]byte, error) {
	s.mu.Lock()
	s.counters.Reads++
	s.counters.Record(journalName)
	s.mu.Unlock()

	return s.entries(context.Background(), journalName)
}

func (s *KVJournalStorage) entries(ctx context.Context, journalName string) ([][]byte, error) {
	out := [][]byte{}
	err := s.store.Scan(ctx, entriesPrefix(journalName), func(_, value []byte) bool {
		out = append(out, value)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *KVJournalStorage) Exists(journalName string) (bool, error) {
	_, ok, err := s.nextSeq(context.Background(), journalName)
	return ok, err
}

func (s *KVJournalStorage) nextSeq(ctx context.Context, journalName string) (uint64, bool, error) {
	raw, err := s.store.Get(ctx, metaKey(journalName))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("journal %q has malformed metadata", journalName)
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func (s *KVJournalStorage) GetAllJournals() ([]string, error) {
	var (
		names   []string
		scanErr error
	)
	err := s.store.Scan(context.Background(), []byte{metaTag}, func(key, _ []byte) bool {
		name, err := decodeName(key)
		if err != nil {
			scanErr = err
			return false
		}
		names = append(names, name)
		return true
	})
	if err != nil {
		return nil, err
	}
	return names, scanErr
}

// Commit applies m's operations to m.JournalName in order and stops at the
// first one that fails.
func (s *KVJournalStorage) Commit(m *feed.JournalMutation) feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	name := m.JournalName
	for i, op := range m.Operations {
		applied, err := s.apply(ctx, name, op)
		if err != nil {
			s.logger.Warn("journal commit failed", "journal", name, "index", i, "reason", err.Error())
			return feed.Failure
		}
		if applied {
			s.counters.Record(name)
		}
	}
	return feed.Success
}

// apply runs one operation. It reports false for a no-op copy.
func (s *KVJournalStorage) apply(ctx context.Context, name string, op feed.JournalOperation) (bool, error) {
	switch op := op.(type) {
	case feed.Append:
		if op.Value == nil {
			return false, errors.New("missing value")
		}
		seq, _, err := s.nextSeq(ctx, name)
		if err != nil {
			return false, err
		}
		err = s.store.Batch(ctx, []kv.Pair{
			{Key: entryKey(name, seq), Value: op.Value},
			{Key: metaKey(name), Value: binary.BigEndian.AppendUint64(nil, seq+1)},
		}, nil)
		if err != nil {
			return false, err
		}
		s.counters.Appends++
	case feed.Copy:
		if _, exists, err := s.nextSeq(ctx, op.To); err != nil {
			return false, err
		} else if exists {
			return false, fmt.Errorf("copy target exists: %s", op.To)
		}
		_, exists, err := s.nextSeq(ctx, name)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
		values, err := s.entries(ctx, name)
		if err != nil {
			return false, err
		}
		// Entries first, meta last: the copy exists only once it is complete.
		sets := make([]kv.Pair, 0, len(values))
		for i, v := range values {
			sets = append(sets, kv.Pair{Key: entryKey(op.To, uint64(i)), Value: v})
		}
		if err := s.store.Load(ctx, sets); err != nil {
			if cerr := s.store.DeletePrefix(ctx, entriesPrefix(op.To)); cerr != nil {
				s.logger.Error("failed to remove partial journal copy", "journal", op.To, "error", cerr)
			}
			return false, err
		}
		meta := kv.Pair{Key: metaKey(op.To), Value: binary.BigEndian.AppendUint64(nil, uint64(len(values)))}
		if err := s.store.Batch(ctx, []kv.Pair{meta}, nil); err != nil {
			return false, err
		}
		s.counters.Copies++
	case feed.DeleteJournal:
		_, exists, err := s.nextSeq(ctx, name)
		if err != nil {
			return false, err
		}
		if !exists {
			return true, nil
		}
		if err := s.store.DeletePrefix(ctx, entriesPrefix(name)); err != nil {
			return false, err
		}
		if err := s.store.Batch(ctx, nil, [][]byte{metaKey(name)}); err != nil {
			return false, err
		}
		s.counters.Deletes++
	default:
		return false, errors.New("unrecognized operation")
	}
	return true, nil
}

// DeleteAll removes every journal.
func (s *KVJournalStorage) DeleteAll() feed.CommitResult {
	names, err := s.GetAllJournals()
	if err != nil {
		s.logger.Error("failed to list journals", "error", err)
		return feed.Failure
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()
	for _, tag := range []byte{entryTag, metaTag} {
		if err := s.store.DeletePrefix(ctx, []byte{tag}); err != nil {
			s.logger.Error("failed to delete journals", "error", err)
			return feed.Failure
		}
	}
	s.counters.Deletes += len(names)
	return feed.Success
}

func (s *KVJournalStorage) Dump() feed.JournalCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters.Clone()
}

var _ feed.JournalStorage = (*KVJournalStorage)(nil)
