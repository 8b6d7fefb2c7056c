package kv

import (
	"context"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"feedstore/internal/feed"
)

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger feed.Logger
}

// NewBadgerStore opens (or creates) a BadgerDB database.
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = feed.NewNopLogger()
	}

	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	badgerOpts = badgerOpts.
		WithLogger(&badgerLogger{logger: logger}).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info("badger store opened", "path", opts.Dir, "in_memory", opts.InMemory)
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(make([]byte, 0, item.ValueSize()))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Batch(ctx context.Context, sets []Pair, deletes [][]byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, p := range sets {
			if err := txn.Set(p.Key, p.Value); err != nil {
				return fmt.Errorf("batch set %q: %w", p.Key, err)
			}
		}
		for _, k := range deletes {
			if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("batch delete %q: %w", k, err)
			}
		}
		return nil
	})
}

// Load goes through a WriteBatch, which splits into transactions of
// badger's maximum batch size.
func (s *BadgerStore) Load(ctx context.Context, pairs []Pair) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range pairs {
		if err := wb.Set(p.Key, p.Value); err != nil {
			return fmt.Errorf("load set %q: %w", p.Key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("load flush: %w", err)
	}
	return nil
}

func (s *BadgerStore) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(make([]byte, 0, item.ValueSize()))
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				break
			}
		}
		return nil
	})
}

func (s *BadgerStore) DeletePrefix(ctx context.Context, prefix []byte) error {
	if len(prefix) == 0 {
		return s.db.DropAll()
	}
	return s.db.DropPrefix(prefix)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf-style output into a feed.Logger.
type badgerLogger struct {
	logger feed.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf("[badger] "+format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf("[badger] "+format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf("[badger] "+format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {}

var _ Store = (*BadgerStore)(nil)
