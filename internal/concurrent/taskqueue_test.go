package concurrent

import (
	"testing"
	"time"

	"feedstore/internal/clock"
	"feedstore/internal/feed"
)

func newTestTaskQueue(mode Mode) (*TaskQueue, *Executor, *clock.Manual) {
	clk := clock.Fixed()
	threads := NewThreadPolicy(true)
	executor := NewExecutor(threads, mode)
	main := NewMainThreadRunner(clk, threads, RunImmediately, nil)
	return NewTaskQueue(executor, main, nil), executor, clk
}

func TestTaskQueue_CountsByType(t *testing.T) {
	q, _, _ := newTestTaskQueue(RunImmediately)

	q.Execute("a", feed.UserFacing, func() {})
	q.Execute("b", feed.UserFacing, func() {})
	q.Execute("c", feed.Background, func() {})
	q.Execute("d", feed.HeadReset, func() {})
	q.Execute("e", feed.HeadInvalidate, func() {})
	q.Execute("f", feed.Immediate, func() {})

	want := map[feed.TaskType]int{
		feed.Immediate:      1,
		feed.HeadInvalidate: 1,
		feed.HeadReset:      1,
		feed.UserFacing:     2,
		feed.Background:     1,
	}
	for typ, n := range want {
		if got := q.Count(typ); got != n {
			t.Errorf("Count(%s) = %d, want %d", typ, got, n)
		}
	}

	q.ResetCounts()
	if got := q.Counts(); len(got) != 0 {
		t.Errorf("Counts() after ResetCounts = %v, want empty", got)
	}
}

func TestTaskQueue_RunsOffMainThread(t *testing.T) {
	q, _, _ := newTestTaskQueue(RunImmediately)
	var checkErr error
	threads := q.executor.threads

	q.Execute("check", feed.UserFacing, func() { checkErr = threads.CheckNotMainThread() })

	if checkErr != nil {
		t.Errorf("task ran on the main thread: %v", checkErr)
	}
}

func TestTaskQueue_ExecuteWithDelay(t *testing.T) {
	q, _, clk := newTestTaskQueue(RunImmediately)
	ran := false

	h := q.ExecuteWithDelay("delayed", feed.Background, func() { ran = true }, time.Second)
	if q.Count(feed.Background) != 1 {
		t.Errorf("Count(background) = %d, want 1", q.Count(feed.Background))
	}

	clk.Advance(999 * time.Millisecond)
	if ran {
		t.Fatal("delayed task ran early")
	}
	clk.Advance(time.Millisecond)
	if !ran {
		t.Error("delayed task did not run at its due time")
	}
	if h.Canceled() {
		t.Error("handle reports canceled")
	}
}

func TestTaskQueue_ResetOnlyTouchesBookkeeping(t *testing.T) {
	q, executor, _ := newTestTaskQueue(QueueAll)
	ran := 0

	q.Execute("a", feed.Background, func() { ran++ })
	q.Execute("b", feed.Background, func() { ran++ })
	if !q.HasBacklog() {
		t.Fatal("HasBacklog() = false with queued work")
	}

	q.Reset()
	if q.HasBacklog() {
		t.Error("HasBacklog() = true after Reset")
	}
	if !q.IsResetting() {
		t.Error("IsResetting() = false after Reset")
	}

	executor.RunAllTasks()
	if ran != 2 {
		t.Errorf("ran %d tasks after Reset, want 2", ran)
	}
	if q.HasBacklog() {
		t.Error("backlog went negative or stale")
	}

	q.CompleteReset()
	q.CompleteReset()
	if q.IsResetting() {
		t.Error("IsResetting() = true after CompleteReset")
	}
	if got := q.CompletedResets(); got != 2 {
		t.Errorf("CompletedResets() = %d, want 2", got)
	}
}

func TestTaskQueue_Initialize(t *testing.T) {
	q, _, _ := newTestTaskQueue(RunImmediately)
	called := false

	q.Initialize(func() { called = true })

	if !called {
		t.Error("Initialize() did not run its callback")
	}
	if !q.Initialized() {
		t.Error("Initialized() = false")
	}
	if got := q.Count(feed.Immediate); got != 1 {
		t.Errorf("Count(immediate) = %d, want 1", got)
	}
}
