package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"
	"github.com/nao1215/httpdoom/internal/model"
)

// DirName is the sub-directory of the output directory holding screenshots.
const DirName = "screenshots"

// Default window size.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// DefaultQuality is the JPEG-equivalent quality passed to FullScreenshot.
// Values of 100 produce PNG output.
const DefaultQuality = 100

// ErrInvalidResolution is returned by ParseResolution.
var ErrInvalidResolution = errors.New("invalid screenshot resolution: expected WIDTHxHEIGHT")

// Capturer captures full-page screenshots into a directory.
type Capturer struct {
	dir       string
	width     int
	height    int
	timeout   time.Duration
	proxy     string
	userAgent string
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithWindowSize sets the browser viewport.
func WithWindowSize(width, height int) Option {
	return func(c *Capturer) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// WithTimeout bounds one capture, including browser start-up.
func WithTimeout(d time.Duration) Option {
	return func(c *Capturer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProxy routes the browser through proxy ("scheme://host:port").
func WithProxy(proxy string) Option {
	return func(c *Capturer) {
		c.proxy = proxy
	}
}

// WithUserAgent sets the browser's User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *Capturer) {
		c.userAgent = ua
	}
}

// NewCapturer creates a Capturer writing into outputDir/screenshots.
func NewCapturer(outputDir string, opts ...Option) *Capturer {
	c := &Capturer{
		dir:     filepath.Join(outputDir, DirName),
		width:   DefaultWidth,
		height:  DefaultHeight,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture renders url and writes it to <dir>/<host>+<port>.png.
// It returns the path of the written file.
func (c *Capturer) Capture(ctx context.Context, target model.Target, url string) (string, error) {
	if url == "" {
		url = target.URL()
	}
	if err := os.MkdirAll(c.dir, 0750); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var buf []byte
	err := chromedp.Run(browserCtx,
		security.SetIgnoreCertificateErrors(true),
		chromedp.EmulateViewport(int64(c.width), int64(c.height)),
		chromedp.Navigate(url),
		chromedp.FullScreenshot(&buf, DefaultQuality),
	)
	if err != nil {
		return "", fmt.Errorf("capture %s: %w", url, err)
	}

	path := filepath.Join(c.dir, FileName(target))
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(c.width, c.height),
	)
	if c.proxy != "" {
		opts = append(opts, chromedp.ProxyServer(c.proxy))
	}
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	return opts
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns the screenshot file name for target: host+port.png.
func FileName(target model.Target) string {
	host := unsafeFileChars.ReplaceAllString(target.Host, "_")
	return host + "+" + strconv.Itoa(target.EffectivePort()) + ".png"
}

// ParseResolution parses "WIDTHxHEIGHT", e.g. "1920x1080".
func ParseResolution(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return w, h, nil
}
