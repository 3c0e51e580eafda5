package pipeline

import (
	"errors"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
)

// ErrAllTargetsUnreachable is returned by Aggregate when no probe succeeded.
var ErrAllTargetsUnreachable = errors.New("all tested hosts are dead")

// FailedTarget records why a target produced no result.
type FailedTarget struct {
	Target model.Target
	Err    error
}

// BatchResult is the aggregated output of a batch run.
type BatchResult struct {
	// Results holds one entry per successful probe, in target order.
	Results []*model.ProbeResult

	// Failures holds one entry per failed probe, in target order.
	Failures []FailedTarget

	// Started is when the batch began.
	Started time.Time

	// Elapsed is the wall time from Started until the last probe finished.
	Elapsed time.Duration
}

// Total returns the number of probed targets.
func (b *BatchResult) Total() int {
	return len(b.Results) + len(b.Failures)
}

// Aggregate partitions completed outcomes into results and failures.
// It must only be called once every probe has finished. When no probe
// succeeded it returns the partial BatchResult together with
// ErrAllTargetsUnreachable.
func Aggregate(outcomes []Outcome, started time.Time) (*BatchResult, error) {
	br := &BatchResult{
		Results:  make([]*model.ProbeResult, 0, len(outcomes)),
		Failures: make([]FailedTarget, 0),
		Started:  started,
		Elapsed:  time.Since(started),
	}

	for _, o := range outcomes {
		if o.Failed() {
			br.Failures = append(br.Failures, FailedTarget{Target: o.Target, Err: o.Err})
			continue
		}
		br.Results = append(br.Results, o.Result)
	}

	if len(br.Results) == 0 {
		return br, ErrAllTargetsUnreachable
	}
	return br, nil
}
