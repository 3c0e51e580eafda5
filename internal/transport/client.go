package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent with every probe unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/87.0.4280.88 Safari/537.36"

// DefaultMaxRedirects caps redirect following.
const DefaultMaxRedirects = 10

// Options configures a probe client.
type Options struct {
	// Timeout bounds the whole exchange, including reading the body.
	Timeout time.Duration

	// Proxy, when non-nil, routes every connection through it.
	Proxy *url.URL

	// FollowRedirects enables redirect following up to MaxRedirects hops.
	FollowRedirects bool

	// MaxRedirects is the hop cap; zero means DefaultMaxRedirects.
	MaxRedirects int

	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string

	// Headers are added to every request, including redirect hops.
	Headers http.Header
}

// NewClient returns a client that shares no state with any other client.
func NewClient(opts Options) (*http.Client, error) {
	base, err := newTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &http.Client{
		Transport: &headerInjectingTransport{
			base:      base,
			userAgent: userAgent,
			headers:   opts.Headers,
		},
		Timeout:       opts.Timeout,
		Jar:           jar,
		CheckRedirect: redirectPolicy(opts.FollowRedirects, opts.MaxRedirects),
	}, nil
}

// newTransport creates an http.Transport with certificate checks disabled on
// this transport only.
func newTransport(proxyURL *url.URL) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	t := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // probing must succeed against invalid certificates
		},
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
		MaxIdleConns:        1,
		IdleConnTimeout:     5 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if proxyURL == nil {
		return t, nil
	}

	if !isSOCKS(proxyURL) {
		t.Proxy = http.ProxyURL(proxyURL)
		return t, nil
	}

	socks, err := proxy.FromURL(proxyURL, dialer)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := socks.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return socks.Dial(network, addr)
		}
	}
	return t, nil
}

// redirectPolicy returns the CheckRedirect function for a client.
func redirectPolicy(follow bool, maxRedirects int) func(*http.Request, []*http.Request) error {
	if !follow {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	// Past the cap the last redirect response becomes the probe's response.
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// headerInjectingTransport adds the User-Agent and operator headers to every
// request, redirect hops included.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	clone.Header.Set("User-Agent", t.userAgent)
	for key, values := range t.headers {
		clone.Header.Del(key)
		for _, v := range values {
			clone.Header.Add(key, v)
		}
	}
	if host := clone.Header.Get("Host"); host != "" {
		clone.Host = host
	}

	return t.base.RoundTrip(clone)
}

// CloseIdleConnections releases the underlying transport's connections.
func (t *headerInjectingTransport) CloseIdleConnections() {
	if ci, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}
