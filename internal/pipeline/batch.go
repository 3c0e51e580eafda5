package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ProbeFunc probes a single target. It returns a result or an error, never both.
type ProbeFunc func(ctx context.Context, target model.Target) (*model.ProbeResult, error)

// Outcome is the terminal state of one probe in a batch.
type Outcome struct {
	Target   model.Target
	Result   *model.ProbeResult
	Err      error
	Duration time.Duration
}

// Failed reports whether the probe failed.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Result == nil
}

// BatchProcessor fans probes out over a WorkerPool.
type BatchProcessor struct {
	probe ProbeFunc

	logger *slog.Logger

	// limiter, when set, paces probe starts across the whole batch.
	limiter *rate.Limiter

	// onOutcome is called from the probing goroutine after each probe.
	onOutcome func(Outcome)
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithRateLimit caps probe starts to perSecond across the batch.
// Zero or negative disables the limit.
func WithRateLimit(perSecond float64) BatchOption {
	return func(b *BatchProcessor) {
		if perSecond > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithOutcomeHook registers fn to observe every outcome as it completes.
// fn is called concurrently and must be safe for concurrent use.
func WithOutcomeHook(fn func(Outcome)) BatchOption {
	return func(b *BatchProcessor) {
		b.onOutcome = fn
	}
}

// NewBatchProcessor creates a BatchProcessor that runs probe for each target.
func NewBatchProcessor(probe ProbeFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{probe: probe}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch probes every target and returns one outcome per target in
// input order. At most pool.Width() probes run at once. Probe failures are
// recorded in the outcomes and never stop other probes; when ctx is
// cancelled, targets that were not started get ctx's error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, pool *WorkerPool, targets []model.Target) []Outcome {
	bp.logger.Debug("starting batch processing",
		"total_targets", len(targets),
		"concurrency", pool.Width(),
	)

	startTime := time.Now()
	outcomes := make([]Outcome, len(targets))
	var mu sync.Mutex

	store := func(i int, o Outcome) {
		mu.Lock()
		outcomes[i] = o
		mu.Unlock()
		if bp.onOutcome != nil {
			bp.onOutcome(o)
		}
	}

	var g errgroup.Group

	for i, target := range targets {
		if err := pool.Acquire(ctx); err != nil {
			store(i, Outcome{Target: target, Err: err})
			continue
		}

		g.Go(func() error {
			defer pool.Release()
			store(i, bp.run(ctx, target))
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // probe errors live in the outcomes

	bp.logger.Debug("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
		"peak_concurrency", pool.Peak(),
	)

	return outcomes
}

// run executes one probe while holding a pool slot.
func (bp *BatchProcessor) run(ctx context.Context, target model.Target) Outcome {
	start := time.Now()

	if bp.limiter != nil {
		if err := bp.limiter.Wait(ctx); err != nil {
			return Outcome{Target: target, Err: err, Duration: time.Since(start)}
		}
	}

	result, err := bp.probe(ctx, target)
	o := Outcome{Target: target, Result: result, Err: err, Duration: time.Since(start)}
	if err != nil {
		o.Result = nil
		bp.logger.Debug("probe failed", "target", target.URL(), "error", err)
	} else {
		bp.logger.Debug("probe succeeded", "target", target.URL(), "status", result.StatusCode)
	}
	return o
}

// Run probes every target and aggregates the outcomes.
func (bp *BatchProcessor) Run(ctx context.Context, pool *WorkerPool, targets []model.Target) (*BatchResult, error) {
	started := time.Now()
	outcomes := bp.ProcessBatch(ctx, pool, targets)
	return Aggregate(outcomes, started)
}
