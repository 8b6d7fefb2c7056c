package feed_test

import (
	"errors"
	"testing"
	"time"

	"feedstore/internal/clock"
	"feedstore/internal/concurrent"
	"feedstore/internal/content"
	"feedstore/internal/feed"
	"feedstore/internal/journal"
	"feedstore/internal/testutil"
)

type serviceFixture struct {
	service  *feed.Service
	threads  *concurrent.ThreadPolicy
	executor *concurrent.Executor
	main     *concurrent.MainThreadRunner
	queue    *concurrent.TaskQueue
	logger   *testutil.RecordingLogger
}

func newServiceFixture(t *testing.T, mode concurrent.Mode) *serviceFixture {
	t.Helper()
	threads := concurrent.NewThreadPolicy(true)
	logger := testutil.NewRecordingLogger()
	executor := concurrent.NewExecutor(threads, mode)
	main := concurrent.NewMainThreadRunner(clock.Fixed(), threads, mode, logger)
	t.Cleanup(main.Close)
	queue := concurrent.NewTaskQueue(executor, main, logger)

	svc := feed.NewService(
		content.NewMemoryContentStorage(logger),
		journal.NewMemoryJournalStorage(logger),
		queue, main, threads, logger,
	)
	return &serviceFixture{
		service:  svc,
		threads:  threads,
		executor: executor,
		main:     main,
		queue:    queue,
		logger:   logger,
	}
}

// drain runs queued background work and the callbacks it posts.
func (f *serviceFixture) drain() {
	for f.executor.HasTasks() {
		f.executor.RunAllTasks()
		f.main.RunAllTasks()
	}
	f.main.RunAllTasks()
}

func TestService_CommitAndGetContent(t *testing.T) {
	f := newServiceFixture(t, concurrent.RunImmediately)

	var result feed.CommitResult = -1
	f.service.CommitContent(feed.NewContentMutation().Upsert("k", []byte("v")), func(r feed.CommitResult) {
		if !f.threads.IsMainThread() {
			t.Error("commit callback not on main thread")
		}
		result = r
	})
	if result != feed.Success {
		t.Fatalf("CommitContent() result = %v, want SUCCESS", result)
	}

	var got map[string][]byte
	f.service.GetContent([]string{"k", "missing"}, func(values map[string][]byte, err error) {
		if err != nil {
			t.Errorf("GetContent() error = %v", err)
		}
		got = values
	})
	if len(got) != 1 || string(got["k"]) != "v" {
		t.Errorf("GetContent() = %v, want {k: v}", got)
	}
	if n := f.queue.Count(feed.UserFacing); n != 2 {
		t.Errorf("Count(user_facing) = %d, want 2", n)
	}
}

func TestService_CommitFailureIsLogged(t *testing.T) {
	f := newServiceFixture(t, concurrent.RunImmediately)

	var result feed.CommitResult
	f.service.CommitContent(feed.NewContentMutation().Upsert("k", nil), func(r feed.CommitResult) { result = r })

	if result != feed.Failure {
		t.Errorf("CommitContent() result = %v, want FAILURE", result)
	}
	if !f.logger.Contains("WARN content commit failed") {
		t.Errorf("expected warning, got %v", f.logger.Lines())
	}
}

func TestService_QueuedModeDefersCallbacks(t *testing.T) {
	f := newServiceFixture(t, concurrent.QueueAll)

	var results []feed.CommitResult
	f.service.CommitJournal(feed.NewJournalMutation("j").Append([]byte("x")), func(r feed.CommitResult) {
		results = append(results, r)
	})
	f.service.CommitJournal(feed.NewJournalMutation("j").Append([]byte("y")), func(r feed.CommitResult) {
		results = append(results, r)
	})
	if len(results) != 0 {
		t.Fatalf("callbacks ran before the queue was drained: %v", results)
	}
	if got := f.executor.PendingTaskCount(); got != 2 {
		t.Errorf("PendingTaskCount() = %d, want 2", got)
	}

	f.drain()

	if len(results) != 2 || results[0] != feed.Success || results[1] != feed.Success {
		t.Errorf("results = %v, want two SUCCESS", results)
	}

	var entries [][]byte
	f.service.ReadJournal("j", func(e [][]byte, err error) { entries = e })
	f.drain()
	if len(entries) != 2 || string(entries[0]) != "x" || string(entries[1]) != "y" {
		t.Errorf("ReadJournal() = %q, want [x y]", entries)
	}
}

func TestService_ListJournalsAndGetAll(t *testing.T) {
	f := newServiceFixture(t, concurrent.RunImmediately)
	f.service.CommitJournal(feed.NewJournalMutation("a").Append([]byte("1")), nil)
	f.service.CommitContent(feed.NewContentMutation().
		Upsert("p:1", []byte("1")).
		Upsert("q:1", []byte("2")), nil)

	var names []string
	f.service.ListJournals(func(n []string, err error) { names = n })
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("ListJournals() = %v, want [a]", names)
	}

	var values map[string][]byte
	f.service.GetAllContent("p:", func(v map[string][]byte, err error) { values = v })
	if len(values) != 1 {
		t.Errorf("GetAllContent() = %v, want one entry", values)
	}
	if n := f.queue.Count(feed.Background); n != 2 {
		t.Errorf("Count(background) = %d, want 2", n)
	}
}

func TestService_Clear(t *testing.T) {
	f := newServiceFixture(t, concurrent.RunImmediately)
	f.service.CommitContent(feed.NewContentMutation().Upsert("k", []byte("v")), nil)
	f.service.CommitJournal(feed.NewJournalMutation("j").Append([]byte("x")), nil)

	var result feed.CommitResult = -1
	f.service.Clear(func(r feed.CommitResult) { result = r })

	if result != feed.Success {
		t.Fatalf("Clear() result = %v, want SUCCESS", result)
	}
	if f.queue.IsResetting() {
		t.Error("IsResetting() = true after clear completed")
	}
	if got := f.queue.CompletedResets(); got != 1 {
		t.Errorf("CompletedResets() = %d, want 1", got)
	}

	var names []string
	f.service.ListJournals(func(n []string, err error) { names = n })
	if len(names) != 0 {
		t.Errorf("ListJournals() = %v, want empty", names)
	}
}

// inlineQueue runs work on the caller's thread, which is how storage work
// ends up on the main thread by mistake.
type inlineQueue struct{}

func (inlineQueue) Execute(task string, taskType feed.TaskType, fn func()) { fn() }
func (inlineQueue) ExecuteWithDelay(task string, taskType feed.TaskType, fn func(), delay time.Duration) feed.Cancelable {
	fn()
	return nil
}
func (inlineQueue) Reset()         {}
func (inlineQueue) CompleteReset() {}

func TestService_RejectsStorageWorkOnMainThread(t *testing.T) {
	threads := concurrent.NewThreadPolicy(true)
	main := concurrent.NewMainThreadRunner(clock.Fixed(), threads, concurrent.RunImmediately, nil)
	defer main.Close()
	store := content.NewMemoryContentStorage(nil)
	svc := feed.NewService(store, journal.NewMemoryJournalStorage(nil), inlineQueue{}, main, threads, feed.NewNopLogger())

	var result feed.CommitResult = -1
	svc.CommitContent(feed.NewContentMutation().Upsert("k", []byte("v")), func(r feed.CommitResult) { result = r })
	if result != feed.Failure {
		t.Errorf("CommitContent() result = %v, want FAILURE", result)
	}
	if keys, _ := store.GetAllKeys(); len(keys) != 0 {
		t.Errorf("store was written on the main thread: %v", keys)
	}

	var gotErr error
	svc.GetContent([]string{"k"}, func(_ map[string][]byte, err error) { gotErr = err })
	if !errors.Is(gotErr, feed.ErrWrongThread) {
		t.Errorf("GetContent() error = %v, want ErrWrongThread", gotErr)
	}
}

func TestService_ClearJournalsKeepsContent(t *testing.T) {
	f := newServiceFixture(t, concurrent.RunImmediately)
	f.service.CommitContent(feed.NewContentMutation().Upsert("k", []byte("v")), nil)
	f.service.CommitJournal(feed.NewJournalMutation("j").Append([]byte("x")), nil)

	var result feed.CommitResult = -1
	f.service.ClearJournals(func(r feed.CommitResult) { result = r })
	if result != feed.Success {
		t.Fatalf("ClearJournals() result = %v, want SUCCESS", result)
	}

	var names []string
	f.service.ListJournals(func(n []string, err error) { names = n })
	if len(names) != 0 {
		t.Errorf("ListJournals() = %v, want empty", names)
	}
	var got map[string][]byte
	f.service.GetContent([]string{"k"}, func(v map[string][]byte, err error) { got = v })
	if string(got["k"]) != "v" {
		t.Errorf("GetContent() = %v, want {k: v}", got)
	}
}
