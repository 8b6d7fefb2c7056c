package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"feedstore/internal/config"
	"feedstore/internal/database"
	"feedstore/internal/feed"
	"feedstore/internal/kv"
)

// Storage is a JournalStorage together with whatever engine it keeps open.
type Storage interface {
	feed.JournalStorage
	io.Closer
}

type closingStorage struct {
	feed.JournalStorage
	close func() error
}

func (s closingStorage) Close() error { return s.close() }

// NewJournalStorageFromConfig creates a JournalStorage based on the config
// type.
func NewJournalStorageFromConfig(cfg config.StorageConfig, logger feed.Logger) (Storage, error) {
	if persistent(cfg.Type) && cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for %s journal storage", cfg.Type)
	}
	if persistent(cfg.Type) {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	switch cfg.Type {
	case "memory":
		return closingStorage{NewMemoryJournalStorage(logger), func() error { return nil }}, nil
	case "sqlite":
		db, err := database.Open(filepath.Join(cfg.DataDir, "journal.db"), logger)
		if err != nil {
			return nil, err
		}
		return closingStorage{database.NewJournalStore(db, logger), db.Close}, nil
	case "badger", "pebble":
		store, err := kv.Open(cfg.Type, kv.Options{
			Dir:    filepath.Join(cfg.DataDir, "journal-"+cfg.Type),
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		return closingStorage{NewKVJournalStorage(store, logger), store.Close}, nil
	default:
		return nil, fmt.Errorf("unknown journal storage type: %s", cfg.Type)
	}
}

func persistent(storageType string) bool {
	switch storageType {
	case "sqlite", "badger", "pebble":
		return true
	}
	return false
}
