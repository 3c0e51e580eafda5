package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
)

func makeTargets(n int) []model.Target {
	targets := make([]model.Target, n)
	for i := range targets {
		targets[i] = model.NewTarget(model.SchemeHTTP, fmt.Sprintf("host%d.example", i), 0)
	}
	return targets
}

func okProbe(_ context.Context, target model.Target) (*model.ProbeResult, error) {
	return &model.ProbeResult{OriginURI: target.URL(), FinalURI: target.URL(), StatusCode: 200, Success: true}, nil
}

func TestNewWorkerPool(t *testing.T) {
	t.Parallel()

	if _, err := NewWorkerPool(0); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth, got %v", err)
	}

	pool, err := NewWorkerPool(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Width() != 3 {
		t.Errorf("expected width 3, got %d", pool.Width())
	}
}

func TestWorkerPoolAcquireRelease(t *testing.T) {
	t.Parallel()

	pool, err := NewWorkerPool(1)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if pool.InFlight() != 1 {
		t.Errorf("expected 1 in flight, got %d", pool.InFlight())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while pool is full, got %v", err)
	}

	pool.Release()
	if pool.InFlight() != 0 {
		t.Errorf("expected 0 in flight, got %d", pool.InFlight())
	}
	if err := pool.Acquire(context.Background()); err != nil {
		t.Errorf("expected Acquire to succeed after Release: %v", err)
	}
	pool.Release()
}

func TestProcessBatchConcurrencyBound(t *testing.T) {
	t.Parallel()

	const (
		width    = 3
		probes   = 10
		duration = 40 * time.Millisecond
	)

	var current, peak atomic.Int32
	probe := func(ctx context.Context, target model.Target) (*model.ProbeResult, error) {
		n := current.Add(1)
		defer current.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(duration)
		return okProbe(ctx, target)
	}

	pool, err := NewWorkerPool(width)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	outcomes := NewBatchProcessor(probe).ProcessBatch(context.Background(), pool, makeTargets(probes))
	elapsed := time.Since(start)

	if got := peak.Load(); got > width {
		t.Errorf("peak concurrency %d exceeded width %d", got, width)
	}
	if got := pool.Peak(); got > width {
		t.Errorf("pool peak %d exceeded width %d", got, width)
	}
	// ceil(10/3) = 4 waves.
	if minElapsed := 4 * duration; elapsed < minElapsed {
		t.Errorf("batch finished in %v, expected at least %v", elapsed, minElapsed)
	}
	if len(outcomes) != probes {
		t.Errorf("expected %d outcomes, got %d", probes, len(outcomes))
	}
	if pool.InFlight() != 0 {
		t.Errorf("expected all slots released, %d still held", pool.InFlight())
	}
}

func TestProcessBatchFailuresDoNotCancelSiblings(t *testing.T) {
	t.Parallel()

	probe := func(ctx context.Context, target model.Target) (*model.ProbeResult, error) {
		if target.Host == "host0.example" {
			return nil, errors.New("connection refused")
		}
		time.Sleep(10 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return okProbe(ctx, target)
	}

	pool, err := NewWorkerPool(4)
	if err != nil {
		t.Fatal(err)
	}

	outcomes := NewBatchProcessor(probe).ProcessBatch(context.Background(), pool, makeTargets(5))

	failed := 0
	for i, o := range outcomes {
		if o.Target.Host != fmt.Sprintf("host%d.example", i) {
			t.Errorf("outcome %d out of order: %s", i, o.Target.Host)
		}
		if o.Failed() {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly 1 failure, got %d", failed)
	}
}

func TestProcessBatchReleasesSlotsOnFailure(t *testing.T) {
	t.Parallel()

	probe := func(context.Context, model.Target) (*model.ProbeResult, error) {
		return nil, context.DeadlineExceeded
	}

	pool, err := NewWorkerPool(2)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		NewBatchProcessor(probe).ProcessBatch(context.Background(), pool, makeTargets(20))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not finish; slots were not released")
	}
	if pool.InFlight() != 0 {
		t.Errorf("expected 0 slots held, got %d", pool.InFlight())
	}
}

func TestProcessBatchCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	probe := func(ctx context.Context, target model.Target) (*model.ProbeResult, error) {
		calls.Add(1)
		return okProbe(ctx, target)
	}

	pool, err := NewWorkerPool(2)
	if err != nil {
		t.Fatal(err)
	}

	outcomes := NewBatchProcessor(probe).ProcessBatch(ctx, pool, makeTargets(3))
	for _, o := range outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", o.Err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("expected no probes to start, got %d", calls.Load())
	}
}

func TestProcessBatchOutcomeHook(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[string]bool)

	pool, err := NewWorkerPool(3)
	if err != nil {
		t.Fatal(err)
	}

	bp := NewBatchProcessor(okProbe, WithOutcomeHook(func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		seen[o.Target.Host] = true
	}))
	bp.ProcessBatch(context.Background(), pool, makeTargets(6))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 6 {
		t.Errorf("expected hook for 6 targets, got %d", len(seen))
	}
}

func TestProcessBatchRateLimit(t *testing.T) {
	t.Parallel()

	pool, err := NewWorkerPool(10)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	NewBatchProcessor(okProbe, WithRateLimit(50)).ProcessBatch(context.Background(), pool, makeTargets(4))

	// Burst of 1 at 50/s: the 4th start waits about 60ms.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("rate limit not applied, batch took %v", elapsed)
	}
}

func TestBatchProcessorRun(t *testing.T) {
	t.Parallel()

	t.Run("aggregates successes", func(t *testing.T) {
		t.Parallel()

		pool, err := NewWorkerPool(2)
		if err != nil {
			t.Fatal(err)
		}
		br, err := NewBatchProcessor(okProbe).Run(context.Background(), pool, makeTargets(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(br.Results) != 3 || br.Total() != 3 {
			t.Errorf("expected 3 results, got %d", len(br.Results))
		}
	})

	t.Run("empty batch is an error", func(t *testing.T) {
		t.Parallel()

		pool, err := NewWorkerPool(2)
		if err != nil {
			t.Fatal(err)
		}
		failing := func(context.Context, model.Target) (*model.ProbeResult, error) {
			return nil, errors.New("dead")
		}
		br, err := NewBatchProcessor(failing).Run(context.Background(), pool, makeTargets(3))
		if !errors.Is(err, ErrAllTargetsUnreachable) {
			t.Fatalf("expected ErrAllTargetsUnreachable, got %v", err)
		}
		if len(br.Failures) != 3 {
			t.Errorf("expected 3 failures, got %d", len(br.Failures))
		}
	})
}
