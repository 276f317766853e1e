package dispatcher

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of outbound calls in flight. Waiters are admitted
// in FIFO order.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewGate returns a gate admitting at most limit holders; limit < 1 is
// treated as 1.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

func (g *Gate) Limit() int { return int(g.limit) }

// InFlight returns the number of current holders.
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }

// Peak returns the highest InFlight value observed.
func (g *Gate) Peak() int { return int(g.peak.Load()) }
