package feed

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time so scheduling is deterministic in tests.
type Clock interface {
	// Now returns the wall-clock time.
	Now() time.Time
	// Elapsed returns the monotonic time since the clock started. Delayed
	// work is scheduled against this value.
	Elapsed() time.Duration
}

// ObservableClock is a Clock that notifies subscribers whenever it moves.
type ObservableClock interface {
	Clock
	// Subscribe registers fn to be called with the new elapsed time after
	// every move. The returned func removes the subscription.
	Subscribe(fn func(elapsed time.Duration)) (unsubscribe func())
}

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
