package wordlist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds the download of a remote word list.
const DefaultFetchTimeout = 30 * time.Second

// Loader reads word lists.
type Loader struct {
	client  *http.Client
	onError func(error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for remote word lists.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// WithOnError registers fn to receive every rejected line.
func WithOnError(fn func(error)) Option {
	return func(l *Loader) {
		l.onError = fn
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if l.onError == nil {
		l.onError = func(error) {}
	}
	return l
}

// Load reads the word list at source, a file path or an http(s) URL.
// Invalid lines are reported to the error callback and skipped. The result
// is deduplicated and keeps first-seen order.
func (l *Loader) Load(ctx context.Context, source string) ([]string, error) {
	var r io.ReadCloser
	var err error

	if isRemote(source) {
		r, err = l.fetch(ctx, source)
	} else {
		r, err = os.Open(source) //nolint:gosec // operator supplied path
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	hosts, err := l.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list %s: %w", source, err)
	}
	if len(hosts) == 0 {
		return nil, ErrEmpty
	}
	return hosts, nil
}

// Parse reads one host per line from r.
func (l *Loader) Parse(r io.Reader) ([]string, error) {
	seen := make(map[string]struct{})
	var hosts []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		host, err := Normalize(line)
		if err != nil {
			l.onError(err)
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts, scanner.Err()
}

func (l *Loader) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, url, resp.Status)
	}
	return resp.Body, nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
