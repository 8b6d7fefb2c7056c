package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feedstore/internal/config"
)

// newTestConfig returns a config with memory storages, a filesystem vault
// and the test encryptor, rooted in a temp dir.
func newTestConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.LogLevel = "error"
	cfg.Content = config.StorageConfig{Type: "memory"}
	cfg.Journal = config.StorageConfig{Type: "memory"}
	cfg.Scheduler = config.SchedulerConfig{Mode: mode, ThreadChecks: true}
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, mutating bool) *App {
	t.Helper()
	a, err := NewApp(cfg, t.Name(), mutating)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return a
}

func TestApp_Content(t *testing.T) {
	for _, mode := range []string{"immediate", "queue"} {
		t.Run(mode, func(t *testing.T) {
			a := newTestApp(t, newTestConfig(t, mode), true)
			defer a.Close()

			if err := a.PutContent("feed:1", []byte("one")); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}
			if err := a.PutContent("feed:2", []byte("two")); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}
			if err := a.PutContent("other", []byte("x")); err != nil {
				t.Fatalf("PutContent() error = %v", err)
			}

			got, err := a.GetContent([]string{"feed:1", "missing"})
			if err != nil {
				t.Fatalf("GetContent() error = %v", err)
			}
			if len(got) != 1 || string(got["feed:1"]) != "one" {
				t.Errorf("GetContent() = %v, want {feed:1: one}", got)
			}

			all, err := a.ListContent("feed:")
			if err != nil {
				t.Fatalf("ListContent() error = %v", err)
			}
			if len(all) != 2 {
				t.Errorf("ListContent() = %v, want 2 entries", all)
			}

			if err := a.DeleteContent("feed:", true); err != nil {
				t.Fatalf("DeleteContent() error = %v", err)
			}
			if all, _ := a.ListContent(""); len(all) != 1 {
				t.Errorf("ListContent() after prefix delete = %v, want only other", all)
			}

			if err := a.ClearContent(); err != nil {
				t.Fatalf("ClearContent() error = %v", err)
			}
			if all, _ := a.ListContent(""); len(all) != 0 {
				t.Errorf("ListContent() after clear = %v, want empty", all)
			}
		})
	}
}

func TestApp_PutEmptyValueFails(t *testing.T) {
	a := newTestApp(t, newTestConfig(t, "immediate"), true)
	defer a.Close()

	if err := a.PutContent("k", nil); !errors.Is(err, ErrCommitFailed) {
		t.Errorf("PutContent() error = %v, want ErrCommitFailed", err)
	}
	if !a.op.Failed() {
		t.Error("operation not marked failed")
	}
}

func TestApp_Journals(t *testing.T) {
	a := newTestApp(t, newTestConfig(t, "queue"), true)
	defer a.Close()

	if err := a.AppendJournal("inbox", [][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("AppendJournal() error = %v", err)
	}
	if err := a.CopyJournal("inbox", "archive"); err != nil {
		t.Fatalf("CopyJournal() error = %v", err)
	}
	if err := a.CopyJournal("inbox", "archive"); !errors.Is(err, ErrCommitFailed) {
		t.Errorf("CopyJournal() onto existing error = %v, want ErrCommitFailed", err)
	}

	entries, err := a.ReadJournal("archive")
	if err != nil {
		t.Fatalf("ReadJournal() error = %v", err)
	}
	if len(entries) != 2 || string(entries[0]) != "a" || string(entries[1]) != "b" {
		t.Errorf("ReadJournal() = %q, want [a b]", entries)
	}

	if err := a.DeleteJournal("inbox"); err != nil {
		t.Fatalf("DeleteJournal() error = %v", err)
	}
	names, err := a.ListJournals()
	if err != nil {
		t.Fatalf("ListJournals() error = %v", err)
	}
	if len(names) != 1 || names[0] != "archive" {
		t.Errorf("ListJournals() = %v, want [archive]", names)
	}

	if err := a.ClearJournals(); err != nil {
		t.Fatalf("ClearJournals() error = %v", err)
	}
	if names, _ := a.ListJournals(); len(names) != 0 {
		t.Errorf("ListJournals() after clear = %v, want empty", names)
	}
}

func TestApp_Dump(t *testing.T) {
	a := newTestApp(t, newTestConfig(t, "immediate"), false)
	defer a.Close()

	a.PutContent("k", []byte("v"))
	a.AppendJournal("j", [][]byte{[]byte("x")})

	var buf bytes.Buffer
	if err := a.Dump(&buf); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`feedstore_content_operations_total{op="insert"} 1`,
		`feedstore_content_entries 1`,
		`feedstore_journal_touches_total{journal="j"} 1`,
		`feedstore_tasks_total{type="user_facing"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() missing %q in:\n%s", want, out)
		}
	}
}

func TestApp_SnapshotRoundTrip(t *testing.T) {
	cfg := newTestConfig(t, "immediate")
	cfg.Content = config.StorageConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "data")}
	cfg.Journal = config.StorageConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "data")}

	a := newTestApp(t, cfg, true)
	if a.NeedsPassphrase() {
		t.Error("NeedsPassphrase() = true for test encryption")
	}
	a.PutContent("k", []byte("v"))
	a.AppendJournal("j", [][]byte{[]byte("1"), []byte("2")})

	id, err := a.PushSnapshot("")
	if err != nil {
		t.Fatalf("PushSnapshot() error = %v", err)
	}
	if err := a.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b := newTestApp(t, cfg, true)
	defer b.Close()

	ids, err := b.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("ListSnapshots() = %v, want [%s]", ids, id)
	}
	if err := b.PullSnapshot(id, ""); err != nil {
		t.Fatalf("PullSnapshot() error = %v", err)
	}

	got, _ := b.GetContent([]string{"k"})
	if string(got["k"]) != "v" {
		t.Errorf("GetContent() after pull = %v, want {k: v}", got)
	}
	entries, _ := b.ReadJournal("j")
	if len(entries) != 2 {
		t.Errorf("ReadJournal() after pull = %q, want 2 entries", entries)
	}
}

func TestApp_CloseLogsOperation(t *testing.T) {
	cfg := newTestConfig(t, "immediate")
	cfg.LogLevel = "info"

	a := newTestApp(t, cfg, true)
	a.PutContent("k", []byte("v"))
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "feedstore.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "operation finished\toperation=TestApp_CloseLogsOperation\tstatus=success") {
		t.Errorf("log = %q, want operation finished line", data)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "bad log level", mutate: func(c *config.Config) { c.LogLevel = "loud" }},
		{name: "bad scheduler mode", mutate: func(c *config.Config) { c.Scheduler.Mode = "parallel" }},
		{name: "bad vault type", mutate: func(c *config.Config) { c.Vault.Type = "tape" }},
		{name: "bad encryption type", mutate: func(c *config.Config) { c.Encryption.Type = "rot13" }},
		{name: "bad content type", mutate: func(c *config.Config) { c.Content.Type = "redis" }},
		{name: "bad journal type", mutate: func(c *config.Config) { c.Journal.Type = "redis" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, "immediate")
			tt.mutate(cfg)
			a, err := NewApp(cfg, "test", false)
			if err == nil {
				a.Close()
				t.Fatal("NewApp() error = nil, want error")
			}
		})
	}
}
