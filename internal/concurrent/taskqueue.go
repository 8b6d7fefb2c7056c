package concurrent

import (
	"sync"
	"time"

	"feedstore/internal/feed"
)

// TaskQueue classifies work before handing it to an Executor. Delayed work
// waits on the MainThreadRunner's clock and is then handed to the same
// Executor. Counts per feed.TaskType are kept for instrumentation.
type TaskQueue struct {
	mu          sync.Mutex
	executor    *Executor
	main        *MainThreadRunner
	logger      feed.Logger
	counts      map[feed.TaskType]int
	pending     int
	initialized bool
	resetting   bool
	resets      int
}

var _ feed.TaskQueue = (*TaskQueue)(nil)

// NewTaskQueue creates a TaskQueue over executor and main.
func NewTaskQueue(executor *Executor, main *MainThreadRunner, logger feed.Logger) *TaskQueue {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &TaskQueue{
		executor: executor,
		main:     main,
		logger:   logger,
		counts:   make(map[feed.TaskType]int),
	}
}

// Initialize runs fn as immediate work and marks the queue initialized.
func (q *TaskQueue) Initialize(fn func()) {
	q.Execute("initialize", feed.Immediate, func() {
		if fn != nil {
			fn()
		}
		q.mu.Lock()
		q.initialized = true
		q.mu.Unlock()
	})
}

// Initialized reports whether Initialize's work has run.
func (q *TaskQueue) Initialized() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.initialized
}

// Execute counts the task and submits it to the executor.
func (q *TaskQueue) Execute(task string, taskType feed.TaskType, fn func()) {
	q.mu.Lock()
	q.counts[taskType]++
	q.mu.Unlock()

	q.logger.Debug("task submitted", "task", task, "type", taskType.String())
	q.submit(fn)
}

// ExecuteWithDelay counts the task now and submits it to the executor once
// the clock reaches its due time.
func (q *TaskQueue) ExecuteWithDelay(task string, taskType feed.TaskType, fn func(), delay time.Duration) feed.Cancelable {
	q.mu.Lock()
	q.counts[taskType]++
	q.mu.Unlock()

	q.logger.Debug("delayed task submitted", "task", task, "type", taskType.String(), "delay", delay)
	return q.main.ExecuteWithDelay(task, func() { q.submit(fn) }, delay)
}

func (q *TaskQueue) submit(fn func()) {
	q.mu.Lock()
	q.pending++
	q.mu.Unlock()

	q.executor.Execute(func() {
		q.mu.Lock()
		if q.pending > 0 {
			q.pending--
		}
		q.mu.Unlock()
		fn()
	})
}

// Reset forgets queued-but-not-started work and marks a reset in
// progress. Nothing is canceled.
func (q *TaskQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = 0
	q.resetting = true
}

// CompleteReset marks the reset cycle as finished.
func (q *TaskQueue) CompleteReset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetting = false
	q.resets++
}

// IsResetting reports whether Reset was called without a matching
// CompleteReset.
func (q *TaskQueue) IsResetting() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resetting
}

// CompletedResets returns how many reset cycles have finished.
func (q *TaskQueue) CompletedResets() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resets
}

// HasBacklog reports whether submitted work has not started yet.
func (q *TaskQueue) HasBacklog() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending > 0
}

// Count returns how many tasks of taskType were submitted.
func (q *TaskQueue) Count(taskType feed.TaskType) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[taskType]
}

// Counts returns a copy of the per-type counts.
func (q *TaskQueue) Counts() map[feed.TaskType]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[feed.TaskType]int, len(q.counts))
	for k, v := range q.counts {
		out[k] = v
	}
	return out
}

// ResetCounts zeroes the per-type counts.
func (q *TaskQueue) ResetCounts() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counts = make(map[feed.TaskType]int)
}
