package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrInvalidWidth is returned when a WorkerPool is created with width < 1.
var ErrInvalidWidth = errors.New("worker pool width must be positive")

// WorkerPool bounds how many probes are in flight at once.
// Create one per batch run.
type WorkerPool struct {
	sem      *semaphore.Weighted
	width    int
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewWorkerPool creates a pool admitting at most width concurrent holders.
func NewWorkerPool(width int) (*WorkerPool, error) {
	if width < 1 {
		return nil, ErrInvalidWidth
	}
	return &WorkerPool{
		sem:   semaphore.NewWeighted(int64(width)),
		width: width,
	}, nil
}

// Acquire blocks until a slot is free or ctx is done.
func (p *WorkerPool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

// Release frees a slot obtained with Acquire.
func (p *WorkerPool) Release() {
	p.inFlight.Add(-1)
	p.sem.Release(1)
}

// Width returns the pool's capacity.
func (p *WorkerPool) Width() int {
	return p.width
}

// InFlight returns the number of slots currently held.
func (p *WorkerPool) InFlight() int {
	return int(p.inFlight.Load())
}

// Peak returns the highest number of slots held at once.
func (p *WorkerPool) Peak() int {
	return int(p.peak.Load())
}
