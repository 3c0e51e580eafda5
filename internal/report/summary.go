package report

import (
	"slices"
	"strconv"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
	"github.com/nao1215/httpdoom/internal/pipeline"
	"github.com/nao1215/httpdoom/internal/probe"
)

// Failure is a failed target as it appears in reports.
type Failure struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Summary is the reportable view of one batch.
type Summary struct {
	// Version is the httpdoom version that produced the batch.
	Version string `json:"version"`

	// RunID identifies the batch across artifacts.
	RunID string `json:"run_id"`

	// Started is when probing began.
	Started time.Time `json:"started"`

	// Elapsed is the wall time of the whole batch.
	Elapsed time.Duration `json:"elapsed"`

	// Total is the number of probed targets.
	Total int `json:"total"`

	// Results are the alive targets in target order.
	Results []*model.ProbeResult `json:"results"`

	// Failures are the dead targets in target order.
	Failures []Failure `json:"failures,omitempty"`
}

// NewSummary builds a Summary from an aggregated batch.
func NewSummary(batch *pipeline.BatchResult, runID, version string) *Summary {
	s := &Summary{
		Version:  version,
		RunID:    runID,
		Started:  batch.Started,
		Elapsed:  batch.Elapsed,
		Total:    batch.Total(),
		Results:  batch.Results,
		Failures: make([]Failure, 0, len(batch.Failures)),
	}

	for _, f := range batch.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		s.Failures = append(s.Failures, Failure{
			URL:     f.Target.URL(),
			Kind:    string(probe.KindOf(f.Err)),
			Message: msg,
		})
	}

	return s
}

// Alive returns the number of targets that answered.
func (s *Summary) Alive() int {
	return len(s.Results)
}

// FailureCounts returns failure counts keyed by kind.
func (s *Summary) FailureCounts() map[string]int {
	counts := make(map[string]int)
	for _, f := range s.Failures {
		counts[f.Kind]++
	}
	return counts
}

// StatusCounts returns result counts keyed by status class ("2xx", "3xx", ...).
func (s *Summary) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Results {
		counts[statusClass(r.StatusCode)]++
	}
	return counts
}

// Technologies returns how many results each technology was detected on.
func (s *Summary) Technologies() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Results {
		for _, tech := range r.Technologies {
			counts[tech.Name]++
		}
	}
	return counts
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func technologyNames(techs []model.Technology) []string {
	names := make([]string, 0, len(techs))
	for _, t := range techs {
		name := t.Name
		if t.Version != "" {
			name += " " + t.Version
		}
		names = append(names, name)
	}
	return names
}
