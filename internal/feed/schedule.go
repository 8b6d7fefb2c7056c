package feed

import "time"

// TaskType classifies work submitted to a TaskQueue.
type TaskType int

const (
	// Immediate tasks run ahead of everything else.
	Immediate TaskType = iota
	// HeadInvalidate tasks invalidate the current head of the stored data.
	HeadInvalidate
	// HeadReset tasks rebuild the head; a reset is in progress until
	// CompleteReset is called.
	HeadReset
	// UserFacing tasks produce something the user is waiting on.
	UserFacing
	// Background tasks have no user waiting on them.
	Background
)

// TaskTypes lists every TaskType in declaration order.
var TaskTypes = []TaskType{Immediate, HeadInvalidate, HeadReset, UserFacing, Background}

func (t TaskType) String() string {
	switch t {
	case Immediate:
		return "immediate"
	case HeadInvalidate:
		return "head_invalidate"
	case HeadReset:
		return "head_reset"
	case UserFacing:
		return "user_facing"
	case Background:
		return "background"
	default:
		return "unknown"
	}
}

// Cancelable is returned for delayed work. Cancel prevents the work from
// running if it has not fired yet.
type Cancelable interface {
	Cancel()
	Canceled() bool
}

// TaskQueue runs classified background work.
type TaskQueue interface {
	Execute(task string, taskType TaskType, fn func())
	ExecuteWithDelay(task string, taskType TaskType, fn func(), delay time.Duration) Cancelable
	// Reset signals that the underlying data is being torn down. It only
	// affects bookkeeping; queued work still runs.
	Reset()
	// CompleteReset marks the end of a reset cycle.
	CompleteReset()
}

// MainThreadRunner runs named work on the main thread.
type MainThreadRunner interface {
	Execute(name string, fn func())
	ExecuteWithDelay(name string, fn func(), delay time.Duration) Cancelable
}

// ThreadChecker asserts which logical thread the caller is on.
type ThreadChecker interface {
	CheckMainThread() error
	CheckNotMainThread() error
}
