package journal

import (
	"testing"

	"feedstore/internal/config"
	"feedstore/internal/feed"
)

func TestNewJournalStorageFromConfig(t *testing.T) {
	for _, typ := range []string{"memory", "sqlite", "badger", "pebble"} {
		t.Run(typ, func(t *testing.T) {
			cfg := config.StorageConfig{Type: typ, DataDir: t.TempDir()}
			got, err := NewJournalStorageFromConfig(cfg, nil)
			if err != nil {
				t.Fatalf("NewJournalStorageFromConfig() error = %v", err)
			}
			defer got.Close()

			if r := got.Commit(feed.NewJournalMutation("j").Append([]byte("x")).Copy("k")); r != feed.Success {
				t.Errorf("Commit() = %v, want SUCCESS", r)
			}
			entries, err := got.Read("k")
			if err != nil || len(entries) != 1 || string(entries[0]) != "x" {
				t.Errorf("Read() = %q, %v, want [x]", entries, err)
			}
		})
	}

	t.Run("persistent type without data_dir", func(t *testing.T) {
		_, err := NewJournalStorageFromConfig(config.StorageConfig{Type: "pebble"}, nil)
		if err == nil {
			t.Error("NewJournalStorageFromConfig() expected error for missing data_dir, got nil")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewJournalStorageFromConfig(config.StorageConfig{Type: "unknown"}, nil)
		if err == nil {
			t.Error("NewJournalStorageFromConfig() expected error for unknown type, got nil")
		}
	})
}
