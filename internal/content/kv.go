package content

import (
	"context"
	"errors"
	"strings"
	"sync"

	"feedstore/internal/feed"
	"feedstore/internal/kv"
)

// contentPrefix namespaces content keys inside the engine.
const contentPrefix = "c"

// KVContentStorage stores content entries in a kv.Store under
// "c"+key. Commits are serialized; each operation is its own engine write,
// so a failure leaves earlier operations applied.
type KVContentStorage struct {
	mu       sync.Mutex
	store    kv.Store
	counters feed.ContentCounters
	logger   feed.Logger
}

// NewKVContentStorage wraps store. The caller keeps ownership of store.
func NewKVContentStorage(store kv.Store, logger feed.Logger) *KVContentStorage {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &KVContentStorage{store: store, logger: logger}
}

func contentKey(key string) []byte {
	return []byte(contentPrefix + key)
}

func (s *KVContentStorage) Get(keys []string) (map[string][]byte, error) {
	s.mu.Lock()
	s.counters.Gets++
	s.mu.Unlock()

	ctx := context.Background()
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := s.store.Get(ctx, contentKey(key))
		if errors.Is(err, kv.ErrNotFound) || (err == nil && len(value) == 0) {
			s.logger.Debug("content not found", "key", key)
			continue
		}
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func (s *KVContentStorage) GetAll(prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	s.counters.GetAlls++
	s.mu.Unlock()

	out := make(map[string][]byte)
	err := s.store.Scan(context.Background(), contentKey(prefix), func(key, value []byte) bool {
		out[strings.TrimPrefix(string(key), contentPrefix)] = value
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *KVContentStorage) GetAllKeys() ([]string, error) {
	var keys []string
	err := s.store.Scan(context.Background(), []byte(contentPrefix), func(key, _ []byte) bool {
		keys = append(keys, strings.TrimPrefix(string(key), contentPrefix))
		return true
	})
	return keys, err
}

// Commit applies m's operations in order and stops at the first failure.
func (s *KVContentStorage) Commit(m *feed.ContentMutation) feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	for i, op := range m.Operations {
		if err := s.apply(ctx, op); err != nil {
			s.logger.Warn("content commit failed", "index", i, "reason", err.Error())
			return feed.Failure
		}
	}
	return feed.Success
}

func (s *KVContentStorage) apply(ctx context.Context, op feed.ContentOperation) error {
	switch op := op.(type) {
	case feed.Upsert:
		if reason := validateUpsert(op); reason != "" {
			return errors.New(reason)
		}
		exists, err := s.exists(ctx, op.Key)
		if err != nil {
			return err
		}
		if err := s.store.Batch(ctx, []kv.Pair{{Key: contentKey(op.Key), Value: op.Value}}, nil); err != nil {
			return err
		}
		if exists {
			s.counters.Updates++
		} else {
			s.counters.Inserts++
		}
	case feed.Delete:
		exists, err := s.exists(ctx, op.Key)
		if err != nil || !exists {
			return err
		}
		if err := s.store.Batch(ctx, nil, [][]byte{contentKey(op.Key)}); err != nil {
			return err
		}
		s.counters.Deletes++
	case feed.DeleteByPrefix:
		return s.deletePrefix(ctx, contentKey(op.Prefix))
	case feed.DeleteAll:
		return s.deletePrefix(ctx, []byte(contentPrefix))
	default:
		return errors.New("unrecognized operation")
	}
	return nil
}

func (s *KVContentStorage) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, contentKey(key))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *KVContentStorage) deletePrefix(ctx context.Context, prefix []byte) error {
	n := 0
	if err := s.store.Scan(ctx, prefix, func(_, _ []byte) bool {
		n++
		return true
	}); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	s.counters.Deletes += n
	return nil
}

func (s *KVContentStorage) Dump() feed.ContentCounters {
	keys, err := s.GetAllKeys()
	if err != nil {
		s.logger.Error("failed to count content", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters
	c.Size = len(keys)
	return c
}

var _ feed.ContentStorage = (*KVContentStorage)(nil)
