package kv

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"feedstore/internal/feed"
)

// PebbleStore implements Store on Pebble.
type PebbleStore struct {
	db     *pebble.DB
	logger feed.Logger
}

// NewPebbleStore opens (or creates) a Pebble database.
func NewPebbleStore(opts Options) (*PebbleStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = feed.NewNopLogger()
	}

	pebbleOpts := &pebble.Options{
		Logger: &pebbleLogger{logger: logger},
	}
	dir := opts.Dir
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
		dir = ""
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create pebble directory: %w", err)
	}

	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}
	logger.Info("pebble store opened", "path", dir, "in_memory", opts.InMemory)
	return &PebbleStore{db: db, logger: logger}, nil
}

func (s *PebbleStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close() //nolint:errcheck
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *PebbleStore) Batch(ctx context.Context, sets []Pair, deletes [][]byte) error {
	batch := s.db.NewBatch()
	defer batch.Close() //nolint:errcheck

	for _, p := range sets {
		if err := batch.Set(p.Key, p.Value, nil); err != nil {
			return fmt.Errorf("batch set %q: %w", p.Key, err)
		}
	}
	for _, k := range deletes {
		if err := batch.Delete(k, nil); err != nil {
			return fmt.Errorf("batch delete %q: %w", k, err)
		}
	}
	return batch.Commit(pebble.Sync)
}

// loadChunkBytes bounds the size of each batch committed by Load.
const loadChunkBytes = 4 << 20

func (s *PebbleStore) Load(ctx context.Context, pairs []Pair) error {
	for len(pairs) > 0 {
		n, size := 0, 0
		for n < len(pairs) && (n == 0 || size < loadChunkBytes) {
			size += len(pairs[n].Key) + len(pairs[n].Value)
			n++
		}
		if err := s.Batch(ctx, pairs[:n], nil); err != nil {
			return err
		}
		pairs = pairs[n:]
	}
	return nil
}

func (s *PebbleStore) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: PrefixEnd(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	for valid := iter.First(); valid; valid = iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if !fn(key, value) {
			break
		}
	}
	return iter.Error()
}

func (s *PebbleStore) DeletePrefix(ctx context.Context, prefix []byte) error {
	if end := PrefixEnd(prefix); end != nil {
		return s.db.DeleteRange(prefix, end, pebble.Sync)
	}

	// No upper bound exists for an empty or all-0xff prefix; delete key by key.
	var keys [][]byte
	if err := s.Scan(ctx, prefix, func(key, _ []byte) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		return err
	}
	return s.Batch(ctx, nil, keys)
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// pebbleLogger adapts a feed.Logger to pebble's logger.
type pebbleLogger struct {
	logger feed.Logger
}

func (l *pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf("[pebble] "+format, args...))
}

func (l *pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf("[pebble] "+format, args...))
}

func (l *pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf("[pebble] "+format, args...)
	l.logger.Error(msg)
	panic(msg)
}

var _ Store = (*PebbleStore)(nil)
