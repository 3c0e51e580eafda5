package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"

	"github.com/nao1215/httpdoom/internal/screenshot"
	"github.com/nao1215/httpdoom/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "httpdoom"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 5000 * time.Millisecond

	// MinTimeout is the lowest accepted HTTP timeout. Anything shorter makes
	// most TLS handshakes over real networks fail.
	MinTimeout = 3000 * time.Millisecond

	// DefaultMaxRedirects caps redirect chains when following is enabled.
	DefaultMaxRedirects = transport.DefaultMaxRedirects

	// DefaultMaxBodySize limits how much of a response body is kept.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultScreenshotResolution is the browser window size for screenshots.
	DefaultScreenshotResolution = "1920x1080"

	// RulesFileName is the cached rule document name.
	RulesFileName = "technologies.json"
)

// DefaultPorts returns the ports probed when none are given.
func DefaultPorts() []int {
	return []int{80, 443, 8080, 8433}
}

// Config holds all configuration options for a httpdoom run.
// It is populated from CLI flags and the optional .httpdoom file and then
// passed down explicitly; nothing reads it from global state.
type Config struct {
	// WordList is a file path or http(s) URL with one host per line.
	WordList string

	// Threads is the maximum number of probes in flight.
	Threads int

	// Timeout is the HTTP timeout of a single probe.
	Timeout time.Duration

	// Ports are expanded against every host of the word list.
	Ports []int

	// Proxy is an optional host:port or http, https, socks5 or socks5h URL.
	Proxy string

	// Headers are extra request headers in "Name: value" form.
	Headers []string

	// OutputDir receives the JSON, Markdown, SQLite and screenshot artifacts.
	OutputDir string

	// Debug enables debug logging.
	Debug bool

	// FollowRedirects makes probes follow redirects up to MaxRedirects.
	FollowRedirects bool

	// MaxRedirects caps redirect chains when FollowRedirects is set.
	MaxRedirects int

	// Detect enables technology fingerprinting.
	Detect bool

	// Screenshot enables headless browser screenshots.
	Screenshot bool

	// ScreenshotResolution is the screenshot window size as WIDTHxHEIGHT.
	ScreenshotResolution string

	// Resolve enables DNS resolution of every alive host.
	Resolve bool

	// RulesURL is where the technology rule document is downloaded from.
	// Empty means the built-in default.
	RulesURL string

	// RulesCachePath is where the rule document is cached.
	RulesCachePath string

	// RateLimit caps probe starts per second. Zero disables the limit.
	RateLimit float64

	// MaxBodySize is the maximum number of body bytes read per probe.
	MaxBodySize int64

	// SQLite additionally stores the batch in results.db.
	SQLite bool

	// MetricsAddr serves Prometheus metrics when set.
	MetricsAddr string

	// UserAgent overrides the default browser User-Agent.
	UserAgent string

	// ConfigFilePath is an explicit .httpdoom path. If empty, the tool
	// searches the current and home directories.
	ConfigFilePath string

	// File holds the loaded .httpdoom file, if any.
	File *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Threads:              runtime.NumCPU(),
		Timeout:              DefaultTimeout,
		Ports:                DefaultPorts(),
		OutputDir:            DefaultOutputDir(),
		MaxRedirects:         DefaultMaxRedirects,
		ScreenshotResolution: DefaultScreenshotResolution,
		Resolve:              true,
		RulesCachePath:       RulesCachePath(),
		MaxBodySize:          DefaultMaxBodySize,
	}
}

// DefaultOutputDir returns a fresh directory name under the system temp dir.
func DefaultOutputDir() string {
	return filepath.Join(os.TempDir(), AppName+"-"+uuid.NewString()[:8])
}

// XDGCacheDir returns the XDG cache directory for httpdoom.
// On Linux: ~/.cache/httpdoom
// On macOS: ~/Library/Caches/httpdoom
// On Windows: %LOCALAPPDATA%\httpdoom\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// XDGConfigDir returns the XDG config directory for httpdoom.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// RulesCachePath returns the default location of the cached rule document.
func RulesCachePath() string {
	return filepath.Join(XDGCacheDir(), RulesFileName)
}

// Validate checks if the configuration is valid. It returns the first
// problem found; every error wraps ErrConfiguration.
func (c *Config) Validate() error {
	if c.WordList == "" {
		return ErrNoWordList
	}
	return c.ValidateProbe()
}

// ValidateProbe checks everything Validate does except the word list. It is
// used when hosts come from the command line.
func (c *Config) ValidateProbe() error {
	if c.Threads <= 0 {
		return ErrInvalidThreads
	}

	if c.Timeout < MinTimeout {
		return ErrTimeoutTooShort
	}

	if len(c.Ports) == 0 {
		return ErrNoPorts
	}
	for _, p := range c.Ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, p)
		}
	}

	if _, err := transport.ParseProxy(c.Proxy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}

	if _, err := ParseHeaders(c.Headers); err != nil {
		return err
	}

	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.Screenshot {
		if _, _, err := screenshot.ParseResolution(c.ScreenshotResolution); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidResolution, err)
		}
	}

	return nil
}

// ThreadsExceedCPUs reports whether Threads is above the processor count.
func (c *Config) ThreadsExceedCPUs() bool {
	return c.Threads > runtime.NumCPU()
}

// ApplyFile fills fields that were not set explicitly from the defaults of
// the loaded .httpdoom file. explicit names the flags the operator set.
func (c *Config) ApplyFile(f *File, explicit func(flag string) bool) {
	if f == nil {
		return
	}
	c.File = f
	d := f.Defaults

	if len(d.Ports) > 0 && !explicit("ports") {
		c.Ports = slices.Clone(d.Ports)
	}
	if d.Threads > 0 && !explicit("threads") {
		c.Threads = d.Threads
	}
	if d.Timeout > 0 && !explicit("http-timeout") {
		c.Timeout = time.Duration(d.Timeout) * time.Millisecond
	}
	if d.Proxy != "" && !explicit("proxy") {
		c.Proxy = d.Proxy
	}
	if d.UserAgent != "" && !explicit("user-agent") {
		c.UserAgent = d.UserAgent
	}
	if len(d.Headers) > 0 {
		c.Headers = append(headerLines(d.Headers), c.Headers...)
	}
}
