// Package vault stores encoded snapshots outside the live storages.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"feedstore/internal/feed"
)

// ErrSnapshotNotFound is returned by GetSnapshot for an unknown id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// MemoryVault keeps snapshots in memory. Safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
	}
}

// PutSnapshot stores the snapshot read from r under id, replacing any
// previous one.
func (m *MemoryVault) PutSnapshot(id string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = data
	return nil
}

func (m *MemoryVault) GetSnapshot(id string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.snapshots[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshot IDs in lexical order, which is creation
// order for IDs made by the snapshot package.
func (m *MemoryVault) ListSnapshots() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ feed.Vault = (*MemoryVault)(nil)
