package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultSourceURL is where the rule document is fetched from on first use.
const DefaultSourceURL = "https://raw.githubusercontent.com/AliasIO/wappalyzer/master/src/technologies.json"

// DefaultFetchTimeout bounds the one-time download of the rule document.
const DefaultFetchTimeout = 60 * time.Second

// maxDocumentSize bounds the downloaded document.
const maxDocumentSize = 64 << 20

// Loader provides the compiled RuleSet, fetching and caching the rule
// document on first use. A Loader is safe for concurrent use; its result,
// success or failure, is computed once per Loader. A load that fails because
// the caller's context ended is not kept, so the next Load tries again.
type Loader struct {
	sourceURL string
	cachePath string
	client    *http.Client
	logger    *slog.Logger

	group singleflight.Group

	mu   sync.Mutex
	done bool
	set  *RuleSet
	err  error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSourceURL overrides DefaultSourceURL.
func WithSourceURL(url string) LoaderOption {
	return func(l *Loader) {
		if url != "" {
			l.sourceURL = url
		}
	}
}

// WithHTTPClient sets the client used for the one-time download.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader that caches the document at cachePath.
func NewLoader(cachePath string, opts ...LoaderOption) *Loader {
	l := &Loader{
		sourceURL: DefaultSourceURL,
		cachePath: cachePath,
		client:    &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// CachePath returns the on-disk location of the cached document.
func (l *Loader) CachePath() string {
	return l.cachePath
}

// Load returns the compiled RuleSet. The first completed call reads the
// cache or downloads the document; later calls return the memoized outcome.
func (l *Loader) Load(ctx context.Context) (*RuleSet, error) {
	if set, ok, err := l.memo(); ok {
		return set, err
	}

	v, err, _ := l.group.Do("rules", func() (any, error) {
		if set, ok, err := l.memo(); ok {
			return set, err
		}

		set, err := l.load(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}

		l.mu.Lock()
		l.done, l.set, l.err = true, set, err
		l.mu.Unlock()

		return set, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*RuleSet), nil //nolint:forcetypeassert // only *RuleSet is stored
}

func (l *Loader) memo() (*RuleSet, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set, l.done, l.err
}

func (l *Loader) load(ctx context.Context) (*RuleSet, error) {
	data, err := l.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	set, err := Compile(doc, WithCompileLogger(l.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleFetch, err)
	}

	stats := set.Stats()
	l.logger.Debug("technology rules compiled",
		"rules", stats.Rules,
		"invalid_patterns", stats.InvalidPatterns,
		"missing_categories", stats.MissingCategories,
	)
	return set, nil
}

// Fetch returns the raw rule document, from the cache when present and
// from the source URL otherwise. A downloaded document is validated and
// written to the cache before it is returned.
func (l *Loader) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(l.cachePath)
	if err == nil {
		l.logger.Debug("using cached technology rules", "path", l.cachePath)
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: read cache %s: %w", ErrRuleFetch, l.cachePath, err)
	}

	l.logger.Info("downloading technology rules", "url", l.sourceURL)

	data, err = l.download(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := ParseDocument(data); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(l.cachePath, data); err != nil {
		return nil, fmt.Errorf("%w: write cache %s: %w", ErrRuleFetch, l.cachePath, err)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleFetch, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuleFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrRuleFetch, resp.StatusCode, l.sourceURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRuleFetch, err)
	}
	return data, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it,
// so concurrent readers never observe a partial document.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".technologies-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
