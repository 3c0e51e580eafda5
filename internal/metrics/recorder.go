package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/httpdoom/internal/pipeline"
	"github.com/nao1215/httpdoom/internal/probe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder collects probe metrics.
type Recorder struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	warnings      *prometheus.CounterVec

	mu       sync.Mutex
	byKind   map[string]int
	warnKind map[string]int
	success  int
	failures int

	server *http.Server
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used by the metrics server.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithPool exposes the pool's in-flight count as a gauge.
func WithPool(pool *pipeline.WorkerPool) Option {
	return func(r *Recorder) {
		r.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "httpdoom_inflight_probes",
				Help: "Number of probes currently holding a worker slot",
			},
			func() float64 { return float64(pool.InFlight()) },
		))
	}
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		byKind:   make(map[string]int),
		warnKind: make(map[string]int),
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpdoom_probes_total",
				Help: "Total number of completed probes",
			},
			[]string{"outcome", "kind"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpdoom_probe_duration_seconds",
				Help:    "Probe duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpdoom_probe_warnings_total",
				Help: "Optional probe steps that failed",
			},
			[]string{"kind"},
		),
	}
	r.registry.MustRegister(r.probesTotal, r.probeDuration, r.warnings)

	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one batch outcome. It is safe for concurrent use and is
// meant to be passed to pipeline.WithOutcomeHook.
func (r *Recorder) Observe(o pipeline.Outcome) {
	outcome, kind := OutcomeSuccess, ""
	if o.Failed() {
		outcome, kind = OutcomeFailure, string(probe.KindOf(o.Err))
	}
	r.probesTotal.WithLabelValues(outcome, kind).Inc()
	r.probeDuration.WithLabelValues(outcome).Observe(o.Duration.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()

	if outcome == OutcomeFailure {
		r.failures++
		r.byKind[kind]++
		return
	}
	r.success++
	for _, w := range o.Result.Warnings {
		r.warnings.WithLabelValues(string(w.Kind)).Inc()
		r.warnKind[string(w.Kind)]++
	}
}

// Summary is a snapshot of recorded outcomes.
type Summary struct {
	Success  int
	Failures int
	// ByKind counts failures per failure kind.
	ByKind map[string]int
	// Warnings counts warnings per warning kind.
	Warnings map[string]int
}

// Kinds returns the failure kinds in sorted order.
func (s Summary) Kinds() []string {
	return sortedKeys(s.ByKind)
}

// WarningKinds returns the warning kinds in sorted order.
func (s Summary) WarningKinds() []string {
	return sortedKeys(s.Warnings)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Summary returns a snapshot of the recorded outcomes.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		Success:  r.success,
		Failures: r.failures,
		ByKind:   make(map[string]int, len(r.byKind)),
		Warnings: make(map[string]int, len(r.warnKind)),
	}
	for k, v := range r.byKind {
		s.ByKind[k] = v
	}
	for k, v := range r.warnKind {
		s.Warnings[k] = v
	}
	return s
}

// Handler returns an http.Handler serving the registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve starts serving /metrics on addr in the background and returns the
// bound address.
func (r *Recorder) Serve(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	r.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Warn("metrics server stopped", "error", err)
		}
	}()

	r.logger.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Shutdown stops the metrics server if it is running.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
