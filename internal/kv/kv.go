// Package kv is a thin ordered key-value layer over embedded LSM engines.
// The content and journal storages encode their data into it so either
// engine can back them.
package kv

import (
	"context"
	"errors"
	"fmt"

	"feedstore/internal/feed"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store provides raw access to an ordered key-value engine. Implementations
// are safe for concurrent use.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Batch applies sets and then deletes in a single atomic write.
	Batch(ctx context.Context, sets []Pair, deletes [][]byte) error

	// Load writes pairs in as many commits as the engine needs. It is not
	// atomic: on error some pairs may already be written. Use it for bulk
	// writes that would exceed a single transaction.
	Load(ctx context.Context, pairs []Pair) error

	// Scan calls fn with copies of every entry whose key starts with prefix,
	// in ascending key order. Returning false stops the scan.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// DeletePrefix removes every key starting with prefix. An empty prefix
	// clears the store.
	DeletePrefix(ctx context.Context, prefix []byte) error

	Close() error
}

// Pair is a key and value to write.
type Pair struct {
	Key   []byte
	Value []byte
}

// Options configures an engine.
type Options struct {
	// Dir is where the engine keeps its files. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	Logger   feed.Logger
}

// Open returns the engine named by engine ("badger" or "pebble").
func Open(engine string, opts Options) (Store, error) {
	switch engine {
	case "badger":
		return NewBadgerStore(opts)
	case "pebble":
		return NewPebbleStore(opts)
	default:
		return nil, fmt.Errorf("unknown kv engine: %q", engine)
	}
}

// PrefixEnd returns the exclusive upper bound for keys starting with
// prefix, or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
