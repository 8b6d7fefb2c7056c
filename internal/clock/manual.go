// Package clock provides a manually driven clock whose moves are observed
// by subscribers. Delayed work keyed on the clock only becomes due when the
// clock is advanced, so nothing ever sleeps.
package clock

import (
	"sync"
	"time"

	"feedstore/internal/feed"
)

// Manual is a feed.ObservableClock that only moves when told to. Safe for
// concurrent use.
type Manual struct {
	mu        sync.Mutex
	now       time.Time
	elapsed   time.Duration
	observers []*observer
}

type observer struct {
	fn func(elapsed time.Duration)
}

var _ feed.ObservableClock = (*Manual)(nil)

// NewManual creates a Manual clock starting at t with zero elapsed time.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Fixed returns a Manual clock set to 2024-01-15 10:30:00 UTC.
func Fixed() *Manual {
	return NewManual(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Advance moves the clock forward by d and notifies observers. Negative
// durations are ignored.
func (c *Manual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.elapsed += d
	elapsed := c.elapsed
	observers := append([]*observer(nil), c.observers...)
	c.mu.Unlock()

	for _, o := range observers {
		o.fn(elapsed)
	}
}

// AdvanceTo moves the clock forward until Elapsed equals elapsed. It never
// moves the clock backwards.
func (c *Manual) AdvanceTo(elapsed time.Duration) {
	c.Advance(elapsed - c.Elapsed())
}

// Set moves the wall clock to t, counting the difference as elapsed time.
// Times before the current one are ignored.
func (c *Manual) Set(t time.Time) {
	c.Advance(t.Sub(c.Now()))
}

// Subscribe registers fn to run after every move, in subscription order.
// Observers run without the clock lock held, so they may read the clock.
func (c *Manual) Subscribe(fn func(elapsed time.Duration)) func() {
	o := &observer{fn: fn}
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, existing := range c.observers {
			if existing == o {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}
