package content

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

// Storage is a ContentStorage together with whatever engine it keeps open.
type Storage interface {
	feed.ContentStorage
	io.Closer
}

type closingStorage struct {
	feed.ContentStorage
	close func() error
}

func (s closingStorage) Close() error { return s.close() }

// NewContentStorageFromConfig creates a ContentStorage based on the config
// type.
func NewContentStorageFromConfig(cfg config.StorageConfig, logger feed.Logger) (Storage, error) {
	if persistent(cfg.Type) && cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for %s content storage", cfg.Type)
	}
	if persistent(cfg.Type) {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	switch cfg.Type {
	case "memory":
		return closingStorage{NewMemoryContentStorage(logger), func() error { return nil }}, nil
	case "sqlite":
		db, err := database.Open(filepath.Join(cfg.DataDir, "content.db"), logger)
		if err != nil {
			return nil, err
		}
		return closingStorage{database.NewContentStore(db, logger), db.Close}, nil
	case "badger", "pebble":
		store, err := kv.Open(cfg.Type, kv.Options{
			Dir:    filepath.Join(cfg.DataDir, "content-"+cfg.Type),
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		return closingStorage{NewKVContentStorage(store, logger), store.Close}, nil
	default:
		return nil, fmt.Errorf("unknown content storage type: %s", cfg.Type)
	}
}

func persistent(storageType string) bool {
	switch storageType {
	case "sqlite", "badger", "pebble":
		return true
	}
	return false
}
