// Package admission bounds how many device scrapes run at once across a batch.
package admission

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the number of devices processed concurrently when no
// capacity is configured.
const DefaultCapacity = 9

// Gate is a fixed-size admission gate. It also records the current and peak
// number of admitted callers so tests can observe the bound.
type Gate struct {
	capacity int
	sem      *semaphore.Weighted

	mu       sync.Mutex
	inFlight int
	peak     int
}

// New creates a Gate. capacity <= 0 means DefaultCapacity.
func New(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Do waits for a slot, runs fn and frees the slot. It only returns an error
// when ctx ends before a slot was granted; fn is not run in that case.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.enter()
	defer func() {
		g.leave()
		g.sem.Release(1)
	}()

	fn(ctx)
	return nil
}

func (g *Gate) enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
}

func (g *Gate) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
}

// Capacity returns the configured number of slots.
func (g *Gate) Capacity() int { return g.capacity }

// InFlight returns the number of callers currently inside Do.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Peak returns the highest InFlight value observed so far.
func (g *Gate) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}
