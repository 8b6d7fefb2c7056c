package concurrent

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"feedstore/internal/feed"
)

// ClockDriver is an observable clock that can be moved forward on demand.
type ClockDriver interface {
	feed.ObservableClock
	AdvanceTo(elapsed time.Duration)
}

type namedTask struct {
	name string
	fn   func()
}

// cancelHandle is the feed.Cancelable returned for delayed work.
type cancelHandle struct {
	canceled atomic.Bool
}

func (h *cancelHandle) Cancel()        { h.canceled.Store(true) }
func (h *cancelHandle) Canceled() bool { return h.canceled.Load() }

type delayedTask struct {
	namedTask
	due    time.Duration
	seq    uint64
	handle *cancelHandle
}

// delayQueue orders delayed tasks by due time, then by submission order.
type delayQueue []*delayedTask

func (q delayQueue) Len() int { return len(q) }

func (q delayQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q delayQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *delayQueue) Push(x any) { *q = append(*q, x.(*delayedTask)) }

func (q *delayQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// MainThreadRunner runs named work labelled as the main thread. Delayed
// work becomes runnable when the clock moves past its due time.
type MainThreadRunner struct {
	mu          sync.Mutex
	clock       feed.ObservableClock
	threads     *ThreadPolicy
	logger      feed.Logger
	mode        Mode
	tasks       []namedTask
	delayed     delayQueue
	seq         uint64
	draining    bool
	completed   int
	unsubscribe func()
}

var _ feed.MainThreadRunner = (*MainThreadRunner)(nil)

// NewMainThreadRunner creates a runner observing clk. A nil policy gets a
// non-enforcing one; a nil logger discards output.
func NewMainThreadRunner(clk feed.ObservableClock, threads *ThreadPolicy, mode Mode, logger feed.Logger) *MainThreadRunner {
	if threads == nil {
		threads = NewThreadPolicy(false)
	}
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	r := &MainThreadRunner{
		clock:   clk,
		threads: threads,
		logger:  logger,
		mode:    mode,
	}
	r.unsubscribe = clk.Subscribe(r.onClockMoved)
	return r
}

// Close stops observing the clock.
func (r *MainThreadRunner) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// Execute queues fn and, in RunImmediately mode, drains the queue.
func (r *MainThreadRunner) Execute(name string, fn func()) {
	r.mu.Lock()
	r.tasks = append(r.tasks, namedTask{name: name, fn: fn})
	r.mu.Unlock()

	if r.mode == RunImmediately {
		r.RunAllTasks()
	}
}

// ExecuteWithDelay schedules fn for the clock's current elapsed time plus
// delay. The work only becomes runnable on a later clock move.
func (r *MainThreadRunner) ExecuteWithDelay(name string, fn func(), delay time.Duration) feed.Cancelable {
	due := r.clock.Elapsed() + delay
	h := &cancelHandle{}

	r.mu.Lock()
	r.seq++
	heap.Push(&r.delayed, &delayedTask{
		namedTask: namedTask{name: name, fn: fn},
		due:       due,
		seq:       r.seq,
		handle:    h,
	})
	r.mu.Unlock()

	r.logger.Debug("delayed task scheduled", "task", name, "due", due)
	return h
}

// onClockMoved promotes every delayed task now due into the run list in
// due order. Canceled tasks are dropped as they surface.
func (r *MainThreadRunner) onClockMoved(elapsed time.Duration) {
	r.mu.Lock()
	for r.delayed.Len() > 0 && r.delayed[0].due <= elapsed {
		t := heap.Pop(&r.delayed).(*delayedTask)
		if t.handle.Canceled() {
			continue
		}
		r.tasks = append(r.tasks, t.namedTask)
	}
	r.mu.Unlock()

	if r.mode == RunImmediately {
		r.RunAllTasks()
	}
}

// RunAllTasks drains the run list in order. Re-entrant calls return
// immediately.
func (r *MainThreadRunner) RunAllTasks() {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	prior := r.threads.SetMainThread(true)
	defer func() {
		r.threads.SetMainThread(prior)
		r.mu.Lock()
		r.draining = false
		r.mu.Unlock()
	}()

	for {
		t, ok := r.next()
		if !ok {
			return
		}
		r.logger.Debug("running main thread task", "task", t.name)
		t.fn()
		r.mu.Lock()
		r.completed++
		r.mu.Unlock()
	}
}

func (r *MainThreadRunner) next() (namedTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tasks) == 0 {
		return namedTask{}, false
	}
	t := r.tasks[0]
	r.tasks[0] = namedTask{}
	r.tasks = r.tasks[1:]
	return t, true
}

// HasPendingTasks reports whether anything is runnable or still waiting on
// the clock. Canceled delayed work does not count.
func (r *MainThreadRunner) HasPendingTasks() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tasks) > 0 {
		return true
	}
	for _, t := range r.delayed {
		if !t.handle.Canceled() {
			return true
		}
	}
	return false
}

// HasTasks reports whether anything is runnable or any task has ever
// completed.
func (r *MainThreadRunner) HasTasks() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks) > 0 || r.completed > 0
}

// CompletedTaskCount returns how many tasks have finished.
func (r *MainThreadRunner) CompletedTaskCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// NextDueTime returns the earliest due time of non-canceled delayed work.
func (r *MainThreadRunner) NextDueTime() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		next  time.Duration
		found bool
	)
	for _, t := range r.delayed {
		if t.handle.Canceled() {
			continue
		}
		if !found || t.due < next {
			next = t.due
			found = true
		}
	}
	return next, found
}

// RunUntilIdle runs everything queued and, if the clock can be driven,
// advances it to each pending due time until no work remains.
func (r *MainThreadRunner) RunUntilIdle() {
	r.RunAllTasks()
	driver, ok := r.clock.(ClockDriver)
	if !ok {
		return
	}
	for {
		due, found := r.NextDueTime()
		if !found {
			return
		}
		if now := r.clock.Elapsed(); due <= now {
			r.onClockMoved(now)
		} else {
			driver.AdvanceTo(due)
		}
		r.RunAllTasks()
	}
}
