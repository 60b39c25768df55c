// Package resilience provides the run-wide primitives that bound calls to the
// geocoding service: a bounded-slot gate, a token-bucket limiter and an
// overload cooldown, plus error classification and retry for input downloads.
package resilience

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
)

// Gate admits at most Capacity holders at once.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int

	acquired atomic.Int64
	released atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewGate creates a gate with the given number of slots (minimum 1).
func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = 1
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func frees the slot; calling it more than once is a no-op.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "gate: acquire slot")
	}

	g.acquired.Add(1)
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			g.released.Add(1)
			g.sem.Release(1)
		})
	}, nil
}

// Capacity returns the number of slots.
func (g *Gate) Capacity() int { return g.capacity }

// Acquired returns the number of successful acquisitions.
func (g *Gate) Acquired() int64 { return g.acquired.Load() }

// Released returns the number of releases.
func (g *Gate) Released() int64 { return g.released.Load() }

// InFlight returns the number of slots currently held.
func (g *Gate) InFlight() int64 { return g.inFlight.Load() }

// Peak returns the highest number of slots held at once.
func (g *Gate) Peak() int64 { return g.peak.Load() }
