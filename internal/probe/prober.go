package probe

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
	"github.com/nao1215/httpdoom/internal/pipeline"
	"github.com/nao1215/httpdoom/internal/transport"
)

// DefaultMaxBodySize limits how much of a response body is read.
const DefaultMaxBodySize = 10 * 1024 * 1024

// DefaultTimeout is the per-probe timeout when none is configured.
const DefaultTimeout = 5 * time.Second

// Prober probes targets according to its Capabilities.
// A Prober is safe for concurrent use; all per-probe state lives in the
// pipeline it builds for each call to Probe.
type Prober struct {
	caps Capabilities

	timeout      time.Duration
	maxRedirects int
	maxBodySize  int64
	userAgent    string
	headers      http.Header
	hostHeaders  map[string]http.Header
	proxy        *url.URL

	resolver      Resolver
	detector      Detector
	screenshotter Screenshotter

	logger *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout sets the hard timeout of one probe.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMaxRedirects sets the redirect cap used when following redirects.
func WithMaxRedirects(n int) Option {
	return func(p *Prober) {
		p.maxRedirects = n
	}
}

// WithMaxBodySize sets how many body bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(p *Prober) {
		if n > 0 {
			p.maxBodySize = n
		}
	}
}

// WithUserAgent overrides transport.DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		p.userAgent = ua
	}
}

// WithHeaders sets extra request headers.
func WithHeaders(h http.Header) Option {
	return func(p *Prober) {
		p.headers = h.Clone()
	}
}

// WithHostHeaders sets extra request headers for individual hosts. They are
// applied on top of WithHeaders and win on conflict.
func WithHostHeaders(m map[string]http.Header) Option {
	return func(p *Prober) {
		p.hostHeaders = make(map[string]http.Header, len(m))
		for host, h := range m {
			p.hostHeaders[strings.ToLower(host)] = h.Clone()
		}
	}
}

// WithProxy sets the proxy used when Capabilities.UseProxy is set.
func WithProxy(u *url.URL) Option {
	return func(p *Prober) {
		p.proxy = u
	}
}

// WithResolver replaces the default net.Resolver.
func WithResolver(r Resolver) Option {
	return func(p *Prober) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithDetector sets the technology detector.
func WithDetector(d Detector) Option {
	return func(p *Prober) {
		p.detector = d
	}
}

// WithScreenshotter sets the screenshot collaborator.
func WithScreenshotter(s Screenshotter) Option {
	return func(p *Prober) {
		p.screenshotter = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// NewProber creates a Prober with the given capabilities.
func NewProber(caps Capabilities, opts ...Option) *Prober {
	p := &Prober{
		caps:         caps,
		timeout:      DefaultTimeout,
		maxRedirects: transport.DefaultMaxRedirects,
		maxBodySize:  DefaultMaxBodySize,
		resolver:     net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Capabilities returns the prober's capabilities.
func (p *Prober) Capabilities() Capabilities {
	return p.caps
}

// Probe fetches target and runs the enabled optional steps. It returns
// either a complete result or a *Failure.
func (p *Prober) Probe(ctx context.Context, target model.Target) (*model.ProbeResult, error) {
	start := time.Now()

	client, err := p.newClient(target)
	if err != nil {
		return nil, newFailure(target, err)
	}
	defer client.CloseIdleConnections()

	result := &model.ProbeResult{
		OriginURI:         target.URL(),
		ResolvedAddresses: []string{},
		Cookies:           []model.Cookie{},
	}

	pl := pipeline.New(pipeline.WithLogger(p.logger))
	pl.AddStep(&fetchStep{client: client, target: target, timeout: p.timeout, maxBodySize: p.maxBodySize})
	if p.caps.ResolveDNS {
		pl.AddStep(&resolveStep{resolver: p.resolver, host: target.Host, timeout: p.timeout})
	}
	if p.caps.DetectTechnology && p.detector != nil {
		pl.AddStep(&detectStep{detector: p.detector})
	}
	if p.caps.CaptureScreenshot && p.screenshotter != nil {
		pl.AddStep(&screenshotStep{screenshotter: p.screenshotter, target: target})
	}

	if err := pl.Execute(ctx, result); err != nil {
		return nil, newFailure(target, err)
	}

	for _, w := range result.Warnings {
		p.logger.Warn("probe step failed",
			"target", result.OriginURI,
			"step", w.Step,
			"kind", string(w.Kind),
			"error", w.Message,
		)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (p *Prober) newClient(target model.Target) (*http.Client, error) {
	opts := transport.Options{
		Timeout:         p.timeout,
		FollowRedirects: p.caps.FollowRedirects,
		MaxRedirects:    p.maxRedirects,
		UserAgent:       p.userAgent,
		Headers:         p.headersFor(target.Host),
	}
	if p.caps.UseProxy {
		opts.Proxy = p.proxy
	}
	return transport.NewClient(opts)
}

// headersFor merges the global headers with the overrides for host.
func (p *Prober) headersFor(host string) http.Header {
	override, ok := p.hostHeaders[strings.ToLower(host)]
	if !ok {
		return p.headers
	}
	merged := p.headers.Clone()
	if merged == nil {
		merged = make(http.Header, len(override))
	}
	for name, values := range override {
		merged[name] = append([]string(nil), values...)
	}
	return merged
}
