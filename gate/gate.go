// Package gate bounds the number of in-flight provider calls process-wide.
// It is a counting semaphore with a bounded wait: a caller that cannot get
// a slot within the configured timeout fails fast instead of queueing
// indefinitely behind a slow provider.
package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrAdmissionTimeout is returned when no slot frees up within the wait
// bound.
var ErrAdmissionTimeout = errors.New("admission gate: no free slot within wait timeout")

// Gate is a counting semaphore sized to the maximum number of concurrent
// provider calls. Safe for concurrent use.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	wait     time.Duration
}

// New creates a Gate admitting up to capacity concurrent holders. Acquire
// waits at most wait for a free slot.
func New(capacity int, wait time.Duration) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		wait:     wait,
	}
}

// Capacity returns the number of slots.
func (g *Gate) Capacity() int { return g.capacity }

// Acquire leases one slot, waiting up to the configured bound. It returns
// ErrAdmissionTimeout when the wait elapses, or the context error when ctx
// itself is done first. The returned permit must be released exactly once;
// Release is idempotent so deferring it on every exit path is safe.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		// Distinguish the caller's deadline from our own wait bound.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrAdmissionTimeout
	}
	return &Permit{gate: g}, nil
}

// Permit is a leased slot. It is owned exclusively by the call that
// acquired it.
type Permit struct {
	gate *Gate
	once sync.Once
}

// Release returns the slot. Calling it more than once has no effect, so a
// leaked or double release can never shrink or grow effective concurrency.
func (p *Permit) Release() {
	p.once.Do(func() { p.gate.sem.Release(1) })
}
