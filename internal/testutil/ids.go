package testutil

import (
	"fmt"
	"sync"
)

// StubIDGenerator returns sequential IDs: "snap-1", "snap-2", etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("snap-%d", g.counter)
}
