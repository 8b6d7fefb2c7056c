package testutil

import (
	"bytes"
	"sort"
	"testing"

	"feedstore/internal/feed"
)

// RunJournalStorageTests exercises the feed.JournalStorage contract against
// stores built by newStore.
func RunJournalStorageTests(t *testing.T, newStore func(t *testing.T) feed.JournalStorage) {
	t.Helper()

	t.Run("appends keep order", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("j").Append([]byte("x")))
		s.Commit(feed.NewJournalMutation("j").Append([]byte("y")))

		assertEntries(t, s, "j", "x", "y")
	})

	t.Run("read of missing journal is empty", func(t *testing.T) {
		s := newStore(t)
		entries, err := s.Read("missing")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Read() = %q, want empty", entries)
		}
		exists, _ := s.Exists("missing")
		if exists {
			t.Error("Exists() = true for a journal never appended to")
		}
	})

	t.Run("nil append fails", func(t *testing.T) {
		s := newStore(t)
		m := feed.NewJournalMutation("j").Append([]byte("x")).Append(nil).Append([]byte("z"))
		if got := s.Commit(m); got != feed.Failure {
			t.Fatalf("Commit() = %v, want FAILURE", got)
		}
		assertEntries(t, s, "j", "x")
	})

	t.Run("copy creates an independent snapshot", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("j").Append([]byte("x")).Copy("k"))
		s.Commit(feed.NewJournalMutation("j").Append([]byte("y")))

		assertEntries(t, s, "k", "x")
		assertEntries(t, s, "j", "x", "y")
	})

	t.Run("empty entry survives a round trip", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("j").Append([]byte{}).Append([]byte("x")))

		entries, err := s.Read("j")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(entries) != 2 || entries[0] == nil || len(entries[0]) != 0 {
			t.Fatalf("Read() = %#v, want [[]byte{} x]", entries)
		}

		m := feed.NewJournalMutation("k")
		for _, e := range entries {
			m.Append(e)
		}
		if got := s.Commit(m); got != feed.Success {
			t.Fatalf("Commit() of read entries = %v, want SUCCESS", got)
		}
		assertEntries(t, s, "k", "", "x")
	})

	t.Run("copy of a large journal", func(t *testing.T) {
		const n = 5000
		s := newStore(t)
		value := bytes.Repeat([]byte("v"), 4<<10)
		m := feed.NewJournalMutation("j")
		for i := 0; i < n; i++ {
			m.Append(value)
		}
		if got := s.Commit(m); got != feed.Success {
			t.Fatalf("Commit() appends = %v, want SUCCESS", got)
		}
		if got := s.Commit(feed.NewJournalMutation("j").Copy("k")); got != feed.Success {
			t.Fatalf("Commit() copy = %v, want SUCCESS", got)
		}
		entries, err := s.Read("k")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(entries) != n {
			t.Errorf("Read() returned %d entries, want %d", len(entries), n)
		}
	})

	t.Run("copy onto existing journal fails", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("k").Append([]byte("keep")))
		s.Commit(feed.NewJournalMutation("j").Append([]byte("x")))

		if got := s.Commit(feed.NewJournalMutation("j").Copy("k")); got != feed.Failure {
			t.Errorf("Commit() = %v, want FAILURE", got)
		}
		assertEntries(t, s, "k", "keep")

		if got := s.Commit(feed.NewJournalMutation("absent").Copy("k")); got != feed.Failure {
			t.Errorf("Commit() from missing source = %v, want FAILURE", got)
		}
	})

	t.Run("copy of missing source is a no-op", func(t *testing.T) {
		s := newStore(t)
		if got := s.Commit(feed.NewJournalMutation("absent").Copy("k")); got != feed.Success {
			t.Fatalf("Commit() = %v, want SUCCESS", got)
		}
		exists, _ := s.Exists("k")
		if exists {
			t.Error("copy of a missing journal created the target")
		}
	})

	t.Run("delete removes journal", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("j").Append([]byte("x")))

		if got := s.Commit(feed.NewJournalMutation("j").Delete()); got != feed.Success {
			t.Fatalf("Commit() = %v, want SUCCESS", got)
		}
		exists, _ := s.Exists("j")
		if exists {
			t.Error("Exists() = true after delete")
		}
		if got := s.Commit(feed.NewJournalMutation("j").Delete()); got != feed.Success {
			t.Errorf("second delete = %v, want SUCCESS", got)
		}
	})

	t.Run("delete then append recreates journal", func(t *testing.T) {
		s := newStore(t)
		m := feed.NewJournalMutation("j").
			Append([]byte("old")).
			Delete().
			Append([]byte("new"))
		if got := s.Commit(m); got != feed.Success {
			t.Fatalf("Commit() = %v, want SUCCESS", got)
		}
		assertEntries(t, s, "j", "new")
	})

	t.Run("nil operation fails the commit", func(t *testing.T) {
		s := newStore(t)
		m := &feed.JournalMutation{JournalName: "j", Operations: []feed.JournalOperation{
			feed.Append{Value: []byte("x")},
			nil,
		}}
		if got := s.Commit(m); got != feed.Failure {
			t.Errorf("Commit() = %v, want FAILURE", got)
		}
		assertEntries(t, s, "j", "x")
	})

	t.Run("get all journals and delete all", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("b").Append([]byte("1")))
		s.Commit(feed.NewJournalMutation("a").Append([]byte("2")).Copy("c"))

		names, err := s.GetAllJournals()
		if err != nil {
			t.Fatalf("GetAllJournals() error = %v", err)
		}
		sort.Strings(names)
		if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
			t.Errorf("GetAllJournals() = %v, want [a b c]", names)
		}

		if got := s.DeleteAll(); got != feed.Success {
			t.Fatalf("DeleteAll() = %v, want SUCCESS", got)
		}
		names, _ = s.GetAllJournals()
		if len(names) != 0 {
			t.Errorf("GetAllJournals() after DeleteAll = %v, want empty", names)
		}
	})

	t.Run("dump counts operations", func(t *testing.T) {
		s := newStore(t)
		s.Commit(feed.NewJournalMutation("j").Append([]byte("x")).Append([]byte("y")).Copy("k"))
		s.Read("j")
		s.Commit(feed.NewJournalMutation("k").Delete())

		c := s.Dump()
		if c.Appends != 2 || c.Copies != 1 || c.Reads != 1 || c.Deletes != 1 {
			t.Errorf("Dump() = %+v, want appends=2 copies=1 reads=1 deletes=1", c)
		}
		if c.PerJournal["j"] != 4 {
			t.Errorf("PerJournal[j] = %d, want 4", c.PerJournal["j"])
		}
	})
}

func assertEntries(t *testing.T, s feed.JournalStorage, journalName string, want ...string) {
	t.Helper()
	entries, err := s.Read(journalName)
	if err != nil {
		t.Fatalf("Read(%q) error = %v", journalName, err)
	}
	if len(entries) != len(want) {
		t.Fatalf("Read(%q) = %q, want %q", journalName, entries, want)
	}
	for i := range want {
		if !bytes.Equal(entries[i], []byte(want[i])) {
			t.Errorf("Read(%q)[%d] = %q, want %q", journalName, i, entries[i], want[i])
		}
	}
}
