package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"feedstore/internal/clock"
	"feedstore/internal/concurrent"
	"feedstore/internal/config"
	"feedstore/internal/content"
	"feedstore/internal/encryption"
	"feedstore/internal/feed"
	"feedstore/internal/journal"
	"feedstore/internal/metrics"
	"feedstore/internal/snapshot"
	"feedstore/internal/vault"
)

// ErrCommitFailed is returned when a storage reports a Failure commit result.
var ErrCommitFailed = errors.New("commit failed")

// App is the application layer between the CLI and feed.Service.
// It constructs all dependencies from config, runs the scheduling envelope
// to completion for every call, and closes the storages on Close.
type App struct {
	cfg       *config.Config
	content   content.Storage
	journal   journal.Storage
	executor  *concurrent.Executor
	main      *concurrent.MainThreadRunner
	queue     *concurrent.TaskQueue
	service   *feed.Service
	snapshots *snapshot.Manager
	collector *metrics.Collector
	logger    feed.Logger
	op        *Operation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "content put").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, mutating bool) (*App, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	mode, err := concurrent.ParseMode(cfg.Scheduler.Mode)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	op := NewOperation(operation, mutating, start)
	l, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	cs, err := content.NewContentStorageFromConfig(cfg.Content, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating content storage: %w", err)
	}

	js, err := journal.NewJournalStorageFromConfig(cfg.Journal, logger)
	if err != nil {
		cs.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating journal storage: %w", err)
	}

	clk := clock.NewManual(start)
	threads := concurrent.NewThreadPolicy(cfg.Scheduler.ThreadChecks)
	executor := concurrent.NewExecutor(threads, mode)
	main := concurrent.NewMainThreadRunner(clk, threads, mode, logger)
	queue := concurrent.NewTaskQueue(executor, main, logger)
	queue.Initialize(func() {
		logger.Debug("task queue initialized", "mode", cfg.Scheduler.Mode)
	})

	return &App{
		cfg:       cfg,
		content:   cs,
		journal:   js,
		executor:  executor,
		main:      main,
		queue:     queue,
		service:   feed.NewService(cs, js, queue, main, threads, logger),
		snapshots: snapshot.NewManager(cs, js, enc, v, clk, feed.UUIDGenerator{}, logger),
		collector: metrics.NewCollector(cs, js).WithTasks(queue),
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// settle drains background work and the main thread callbacks it posts,
// including delayed work.
func (a *App) settle() {
	for a.executor.HasTasks() || a.main.HasPendingTasks() {
		a.executor.RunAllTasks()
		a.main.RunUntilIdle()
	}
}

func commitErr(result feed.CommitResult) error {
	if result != feed.Success {
		return ErrCommitFailed
	}
	return nil
}

func (a *App) commitContent(m *feed.ContentMutation) error {
	result := feed.Failure
	a.service.CommitContent(m, func(r feed.CommitResult) { result = r })
	a.settle()
	return a.record(commitErr(result))
}

func (a *App) commitJournal(m *feed.JournalMutation) error {
	result := feed.Failure
	a.service.CommitJournal(m, func(r feed.CommitResult) { result = r })
	a.settle()
	return a.record(commitErr(result))
}

// record marks the operation failed when err is non-nil and returns err.
func (a *App) record(err error) error {
	a.op.Fail(err)
	return err
}

// PutContent stores value under key.
func (a *App) PutContent(key string, value []byte) error {
	return a.commitContent(feed.NewContentMutation().Upsert(key, value))
}

// GetContent returns the non-empty values stored under keys.
func (a *App) GetContent(keys []string) (map[string][]byte, error) {
	var (
		values map[string][]byte
		err    error
	)
	a.service.GetContent(keys, func(v map[string][]byte, e error) { values, err = v, e })
	a.settle()
	return values, a.record(err)
}

// ListContent returns every entry whose key starts with prefix.
func (a *App) ListContent(prefix string) (map[string][]byte, error) {
	var (
		values map[string][]byte
		err    error
	)
	a.service.GetAllContent(prefix, func(v map[string][]byte, e error) { values, err = v, e })
	a.settle()
	return values, a.record(err)
}

// DeleteContent removes key, or every key starting with key when byPrefix is set.
func (a *App) DeleteContent(key string, byPrefix bool) error {
	m := feed.NewContentMutation()
	if byPrefix {
		m.DeleteByPrefix(key)
	} else {
		m.Delete(key)
	}
	return a.commitContent(m)
}

// ClearContent removes every content entry.
func (a *App) ClearContent() error {
	return a.commitContent(feed.NewContentMutation().DeleteAll())
}

// AppendJournal appends values to the journal in order.
func (a *App) AppendJournal(name string, values [][]byte) error {
	m := feed.NewJournalMutation(name)
	for _, v := range values {
		m.Append(v)
	}
	return a.commitJournal(m)
}

// ReadJournal returns the journal's entries in append order.
func (a *App) ReadJournal(name string) ([][]byte, error) {
	var (
		entries [][]byte
		err     error
	)
	a.service.ReadJournal(name, func(e [][]byte, er error) { entries, err = e, er })
	a.settle()
	return entries, a.record(err)
}

// CopyJournal copies from into a new journal named to.
func (a *App) CopyJournal(from, to string) error {
	return a.commitJournal(feed.NewJournalMutation(from).Copy(to))
}

// DeleteJournal removes the named journal.
func (a *App) DeleteJournal(name string) error {
	return a.commitJournal(feed.NewJournalMutation(name).Delete())
}

// ListJournals returns the existing journal names.
func (a *App) ListJournals() ([]string, error) {
	var (
		names []string
		err   error
	)
	a.service.ListJournals(func(n []string, e error) { names, err = n, e })
	a.settle()
	return names, a.record(err)
}

// ClearJournals removes every journal.
func (a *App) ClearJournals() error {
	result := feed.Failure
	a.service.ClearJournals(func(r feed.CommitResult) { result = r })
	a.settle()
	return a.record(commitErr(result))
}

// Clear wipes content and journals together.
func (a *App) Clear() error {
	result := feed.Failure
	a.service.Clear(func(r feed.CommitResult) { result = r })
	a.settle()
	return a.record(commitErr(result))
}

// Dump writes the storage and task counters in Prometheus text format.
func (a *App) Dump(w io.Writer) error {
	return a.record(metrics.WriteText(w, a.collector))
}

// NeedsPassphrase reports whether snapshot commands need a passphrase.
func (a *App) NeedsPassphrase() bool {
	return a.snapshots.NeedsPassphrase()
}

// PushSnapshot exports both storages to the vault and returns the snapshot ID.
func (a *App) PushSnapshot(passphrase string) (string, error) {
	id, err := a.snapshots.Push(passphrase)
	return id, a.record(err)
}

// PullSnapshot replaces both storages with the snapshot id.
func (a *App) PullSnapshot(id, passphrase string) error {
	return a.record(a.snapshots.Pull(id, passphrase))
}

// ListSnapshots returns the snapshot IDs held by the vault.
func (a *App) ListSnapshots() ([]string, error) {
	ids, err := a.snapshots.List()
	return ids, a.record(err)
}

// Close logs the operation outcome and closes all resources.
func (a *App) Close() error {
	var firstErr error

	a.settle()
	a.main.Close()

	if err := a.journal.Close(); err != nil {
		firstErr = fmt.Errorf("closing journal storage: %w", err)
	}
	if err := a.content.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing content storage: %w", err)
	}

	args := []any{"operation", a.op.Name, "status", a.op.Status}
	if a.op.Err != nil {
		args = append(args, "error", a.op.Err)
	}
	switch {
	case a.op.Failed():
		a.logger.Warn("operation finished", args...)
	case a.op.Mutating:
		a.logger.Info("operation finished", args...)
	default:
		a.logger.Debug("operation finished", args...)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
