package journal

import (
	"testing"

	"feedstore/internal/feed"
	"feedstore/internal/testutil"
)

func TestMemoryJournalStorage(t *testing.T) {
	testutil.RunJournalStorageTests(t, func(t *testing.T) feed.JournalStorage {
		return NewMemoryJournalStorage(nil)
	})
}

func TestMemoryJournalStorage_EmptyEntryAllowed(t *testing.T) {
	s := NewMemoryJournalStorage(nil)
	if got := s.Commit(feed.NewJournalMutation("j").Append([]byte{})); got != feed.Success {
		t.Fatalf("Commit() = %v, want SUCCESS", got)
	}
	entries, _ := s.Read("j")
	if len(entries) != 1 || len(entries[0]) != 0 {
		t.Errorf("Read() = %q, want one empty entry", entries)
	}
}

func TestMemoryJournalStorage_ReadReturnsCopy(t *testing.T) {
	s := NewMemoryJournalStorage(nil)
	s.Commit(feed.NewJournalMutation("j").Append([]byte("x")))

	entries, _ := s.Read("j")
	entries[0] = []byte("mutated")
	_ = append(entries, []byte("extra"))

	again, _ := s.Read("j")
	if len(again) != 1 || string(again[0]) != "x" {
		t.Errorf("Read() = %q, caller mutation leaked into store", again)
	}
}

func TestMemoryJournalStorage_LogsCopyConflict(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	s := NewMemoryJournalStorage(logger)
	s.Commit(feed.NewJournalMutation("a").Append([]byte("1")))
	s.Commit(feed.NewJournalMutation("b").Append([]byte("2")))

	s.Commit(feed.NewJournalMutation("a").Copy("b"))

	if !logger.Contains("copy target exists") {
		t.Errorf("expected copy conflict in log, got %v", logger.Lines())
	}
}
