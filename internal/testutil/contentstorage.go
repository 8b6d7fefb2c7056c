package testutil

import (
	"bytes"
	"sort"
	"testing"

	"feedstore/internal/feed"
)

// RunContentStorageTests exercises the feed.ContentStorage contract against
// stores built by newStore. Every backend runs the same cases.
func RunContentStorageTests(t *testing.T, newStore func(t *testing.T) feed.ContentStorage) {
	t.Helper()

	t.Run("upsert then get round trips", func(t *testing.T) {
		s := newStore(t)
		if got := s.Commit(feed.NewContentMutation().Upsert("key", []byte("value"))); got != feed.Success {
			t.Fatalf("Commit() = %v, want SUCCESS", got)
		}
		values, err := s.Get([]string{"key"})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(values["key"], []byte("value")) {
			t.Errorf("Get() = %q, want %q", values["key"], "value")
		}
	})

	t.Run("upsert replaces previous value", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().Upsert("key", []byte("one")))
		s.Commit(feed.NewContentMutation().Upsert("key", []byte("two")))

		values, _ := s.Get([]string{"key"})
		if !bytes.Equal(values["key"], []byte("two")) {
			t.Errorf("Get() = %q, want %q", values["key"], "two")
		}
		counters := s.Dump()
		if counters.Inserts != 1 || counters.Updates != 1 {
			t.Errorf("Dump() inserts=%d updates=%d, want 1 and 1", counters.Inserts, counters.Updates)
		}
	})

	t.Run("invalid upserts fail and leave the key untouched", func(t *testing.T) {
		tests := []struct {
			name  string
			key   string
			value []byte
		}{
			{name: "empty value", key: "key", value: []byte{}},
			{name: "nil value", key: "key", value: nil},
			{name: "empty key", key: "", value: []byte("value")},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newStore(t)
				if got := s.Commit(feed.NewContentMutation().Upsert(tt.key, tt.value)); got != feed.Failure {
					t.Errorf("Commit() = %v, want FAILURE", got)
				}
				keys, err := s.GetAllKeys()
				if err != nil {
					t.Fatalf("GetAllKeys() error = %v", err)
				}
				if len(keys) != 0 {
					t.Errorf("GetAllKeys() = %v, want empty", keys)
				}
			})
		}
	})

	t.Run("failed batch keeps earlier operations", func(t *testing.T) {
		s := newStore(t)
		m := feed.NewContentMutation().
			Upsert("a", []byte("1")).
			Upsert("b", []byte{}).
			Upsert("c", []byte("3"))

		if got := s.Commit(m); got != feed.Failure {
			t.Fatalf("Commit() = %v, want FAILURE", got)
		}
		values, _ := s.Get([]string{"a", "b", "c"})
		if !bytes.Equal(values["a"], []byte("1")) {
			t.Errorf("Get(a) = %q, want %q", values["a"], "1")
		}
		if _, ok := values["b"]; ok {
			t.Error("Get(b) returned the rejected entry")
		}
		if _, ok := values["c"]; ok {
			t.Error("Get(c) returned an entry after the failure point")
		}
	})

	t.Run("nil operation fails the commit", func(t *testing.T) {
		s := newStore(t)
		m := &feed.ContentMutation{Operations: []feed.ContentOperation{
			feed.Upsert{Key: "a", Value: []byte("1")},
			nil,
		}}
		if got := s.Commit(m); got != feed.Failure {
			t.Errorf("Commit() = %v, want FAILURE", got)
		}
		values, _ := s.Get([]string{"a"})
		if len(values) != 1 {
			t.Errorf("Get() = %v, want the entry applied before the failure", values)
		}
	})

	t.Run("get omits missing keys", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().Upsert("present", []byte("x")))

		values, err := s.Get([]string{"present", "missing"})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(values) != 1 {
			t.Errorf("Get() = %v, want only the present key", values)
		}
	})

	t.Run("delete is a no-op for missing keys", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().Upsert("a", []byte("1")))

		m := feed.NewContentMutation().Delete("a").Delete("never-existed")
		if got := s.Commit(m); got != feed.Success {
			t.Fatalf("Commit() = %v, want SUCCESS", got)
		}
		values, _ := s.Get([]string{"a"})
		if len(values) != 0 {
			t.Errorf("Get() = %v, want empty after delete", values)
		}
	})

	t.Run("get all filters by prefix", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().
			Upsert("feature:1", []byte("a")).
			Upsert("feature:2", []byte("b")).
			Upsert("token:1", []byte("c")))

		values, err := s.GetAll("feature:")
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if len(values) != 2 {
			t.Errorf("GetAll() returned %d entries, want 2", len(values))
		}
		all, _ := s.GetAll("")
		if len(all) != 3 {
			t.Errorf("GetAll(\"\") returned %d entries, want 3", len(all))
		}
	})

	t.Run("delete by prefix is idempotent", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().
			Upsert("feature:1", []byte("a")).
			Upsert("feature:2", []byte("b")).
			Upsert("other", []byte("c")))

		for i := 0; i < 2; i++ {
			if got := s.Commit(feed.NewContentMutation().DeleteByPrefix("feature:")); got != feed.Success {
				t.Fatalf("Commit() pass %d = %v, want SUCCESS", i+1, got)
			}
			values, _ := s.GetAll("feature:")
			if len(values) != 0 {
				t.Errorf("GetAll() pass %d = %v, want empty", i+1, values)
			}
		}
		keys, _ := s.GetAllKeys()
		if len(keys) != 1 || keys[0] != "other" {
			t.Errorf("GetAllKeys() = %v, want [other]", keys)
		}
	})

	t.Run("delete all clears the store", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().
			Upsert("a", []byte("1")).
			Upsert("b", []byte("2")))

		m := feed.NewContentMutation().DeleteAll().Upsert("c", []byte("3"))
		if got := s.Commit(m); got != feed.Success {
			t.Fatalf("Commit() = %v, want SUCCESS", got)
		}
		keys, _ := s.GetAllKeys()
		if len(keys) != 1 || keys[0] != "c" {
			t.Errorf("GetAllKeys() = %v, want [c]", keys)
		}
	})

	t.Run("get all keys snapshots current keys", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewContentMutation().
			Upsert("b", []byte("2")).
			Upsert("a", []byte("1")))

		keys, err := s.GetAllKeys()
		if err != nil {
			t.Fatalf("GetAllKeys() error = %v", err)
		}
		sort.Strings(keys)
		if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
			t.Errorf("GetAllKeys() = %v, want [a b]", keys)
		}
		if got := s.Dump().Size; got != 2 {
			t.Errorf("Dump().Size = %d, want 2", got)
		}
	})
}
