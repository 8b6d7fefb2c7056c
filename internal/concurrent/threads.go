// Package concurrent models the scheduling envelope storage callers run
// inside: a background Executor, a MainThreadRunner with clock-driven
// delayed work, and a TaskQueue that classifies submitted tasks.
//
// There is no real parallelism here. "Main" and "background" are labels
// carried by a ThreadPolicy while work drains, so thread assertions in
// production code can be exercised deterministically.
package concurrent

import (
	"fmt"
	"sync"

	"feedstore/internal/feed"
)

// Mode selects whether submitted work drains inline or waits for an
// explicit RunAllTasks.
type Mode int

const (
	// RunImmediately drains the queue before Execute returns.
	RunImmediately Mode = iota
	// QueueAll keeps work queued until RunAllTasks is called.
	QueueAll
)

// ParseMode maps a config value onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "immediate", "":
		return RunImmediately, nil
	case "queue":
		return QueueAll, nil
	default:
		return RunImmediately, fmt.Errorf("unknown scheduler mode: %q", s)
	}
}

// ThreadPolicy records whether the current logical thread is the main
// thread and, when enforcing, turns mismatches into errors. Safe for
// concurrent use.
type ThreadPolicy struct {
	mu      sync.Mutex
	enforce bool
	onMain  bool
}

var _ feed.ThreadChecker = (*ThreadPolicy)(nil)

// NewThreadPolicy starts on the main thread.
func NewThreadPolicy(enforce bool) *ThreadPolicy {
	return &ThreadPolicy{enforce: enforce, onMain: true}
}

// IsMainThread reports the current label.
func (p *ThreadPolicy) IsMainThread() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onMain
}

// SetMainThread sets the label and returns the previous one so callers can
// restore it.
func (p *ThreadPolicy) SetMainThread(onMain bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	prior := p.onMain
	p.onMain = onMain
	return prior
}

// Enforcing reports whether checks can fail.
func (p *ThreadPolicy) Enforcing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enforce
}

// CheckMainThread fails when enforcing and not on the main thread.
func (p *ThreadPolicy) CheckMainThread() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enforce && !p.onMain {
		return fmt.Errorf("%w: expected the main thread", feed.ErrWrongThread)
	}
	return nil
}

// CheckNotMainThread fails when enforcing and on the main thread.
func (p *ThreadPolicy) CheckNotMainThread() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enforce && p.onMain {
		return fmt.Errorf("%w: expected a background thread", feed.ErrWrongThread)
	}
	return nil
}
