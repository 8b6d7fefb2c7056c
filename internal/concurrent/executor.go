package concurrent

import "sync"

// Executor models a background pool. Work runs one item at a time in
// submission order, labelled as not being on the main thread.
type Executor struct {
	mu        sync.Mutex
	threads   *ThreadPolicy
	mode      Mode
	tasks     []func()
	draining  bool
	completed int
}

// NewExecutor creates an Executor. A nil policy gets a non-enforcing one.
func NewExecutor(threads *ThreadPolicy, mode Mode) *Executor {
	if threads == nil {
		threads = NewThreadPolicy(false)
	}
	return &Executor{threads: threads, mode: mode}
}

// Execute queues fn and, in RunImmediately mode, drains the queue.
func (e *Executor) Execute(fn func()) {
	e.mu.Lock()
	e.tasks = append(e.tasks, fn)
	e.mu.Unlock()

	if e.mode == RunImmediately {
		e.RunAllTasks()
	}
}

// RunAllTasks drains the queue in FIFO order, including work submitted by
// running tasks. A call made while a drain is in progress returns
// immediately; the active drain picks up anything new.
func (e *Executor) RunAllTasks() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	prior := e.threads.SetMainThread(false)
	defer func() {
		e.threads.SetMainThread(prior)
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
	}()

	for {
		fn, ok := e.next()
		if !ok {
			return
		}
		fn()
		e.mu.Lock()
		e.completed++
		e.mu.Unlock()
	}
}

func (e *Executor) next() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.tasks) == 0 {
		return nil, false
	}
	fn := e.tasks[0]
	e.tasks[0] = nil
	e.tasks = e.tasks[1:]
	return fn, true
}

// HasTasks reports whether work is queued.
func (e *Executor) HasTasks() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks) > 0
}

// PendingTaskCount returns the number of queued items.
func (e *Executor) PendingTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// CompletedTaskCount returns how many items have finished.
func (e *Executor) CompletedTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}
