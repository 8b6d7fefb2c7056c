// Package snapshot exports the content and journal storages to a portable
// document and restores them from one.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"feedstore/internal/feed"
)

// Snapshot is a point-in-time copy of both storages. Byte values are
// base64 encoded in JSON.
type Snapshot struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Content   map[string][]byte   `json:"content"`
	Journals  map[string][][]byte `json:"journals"`
}

// NewID returns an ID whose lexical order follows creation time.
func NewID(clock feed.Clock, ids feed.IDGenerator) string {
	return fmt.Sprintf("%s-%s", clock.Now().UTC().Format("20060102T150405Z"), ids.New())
}

// Export reads every content entry and journal. It is not atomic with
// respect to concurrent commits.
func Export(content feed.ContentStorage, journal feed.JournalStorage, clock feed.Clock, ids feed.IDGenerator) (*Snapshot, error) {
	entries, err := content.GetAll("")
	if err != nil {
		return nil, fmt.Errorf("exporting content: %w", err)
	}

	names, err := journal.GetAllJournals()
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	journals := make(map[string][][]byte, len(names))
	for _, name := range names {
		values, err := journal.Read(name)
		if err != nil {
			return nil, fmt.Errorf("exporting journal %q: %w", name, err)
		}
		journals[name] = values
	}

	return &Snapshot{
		ID:        NewID(clock, ids),
		CreatedAt: clock.Now().UTC(),
		Content:   entries,
		Journals:  journals,
	}, nil
}

// Restore replaces the storages' data with s. Content entries with empty
// values are skipped since they cannot be written.
func Restore(s *Snapshot, content feed.ContentStorage, journal feed.JournalStorage) error {
	m := feed.NewContentMutation().DeleteAll()
	for _, key := range sortedKeys(s.Content) {
		if len(s.Content[key]) == 0 {
			continue
		}
		m.Upsert(key, s.Content[key])
	}
	if r := content.Commit(m); r != feed.Success {
		return fmt.Errorf("restoring content: commit %s", r)
	}

	if r := journal.DeleteAll(); r != feed.Success {
		return fmt.Errorf("clearing journals: %s", r)
	}
	for _, name := range sortedKeys(s.Journals) {
		jm := feed.NewJournalMutation(name)
		for _, v := range s.Journals[name] {
			if v == nil {
				v = []byte{}
			}
			jm.Append(v)
		}
		if r := journal.Commit(jm); r != feed.Success {
			return fmt.Errorf("restoring journal %q: commit %s", name, r)
		}
	}
	return nil
}

// Encode writes s as JSON.
func Encode(w io.Writer, s *Snapshot) error {
	if err := json.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Decode reads a JSON snapshot.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
