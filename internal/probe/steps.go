package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Step names, also used in warnings.
const (
	StepFetch      = "fetch"
	StepResolve    = "resolve"
	StepDetect     = "detect"
	StepScreenshot = "screenshot"
)

// fetchStep issues the GET request and fills in the response fields.
type fetchStep struct {
	client      *http.Client
	target      model.Target
	timeout     time.Duration
	maxBodySize int64
}

func (s *fetchStep) Name() string { return StepFetch }

func (s *fetchStep) Do(ctx context.Context, result *model.ProbeResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.target.URL(), nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	content := decodeBody(raw, resp.Header.Get("Content-Type"))

	result.FinalURI = resp.Request.URL.String()
	result.StatusCode = resp.StatusCode
	result.Success = model.IsSuccessStatus(resp.StatusCode)
	result.ResponseHeaders = resp.Header.Clone()
	result.RequestHeaders = resp.Request.Header.Clone()
	result.Content = content
	result.ContentSHA256 = model.ComputeDigest(raw)
	result.Title = extractTitle(content)
	result.Cookies = collectCookies(s.client.Jar, req.URL, resp)

	return nil
}

// decodeBody converts the body to UTF-8 text using the declared or sniffed
// charset. A byte order mark overrides both. Undecodable bodies are kept
// as-is.
func decodeBody(raw []byte, contentType string) string {
	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// collectCookies returns the cookies the probe's jar holds for the origin
// and final URLs. Attributes come from the final response's Set-Cookie
// headers when available, since the jar only exposes names and values.
func collectCookies(jar http.CookieJar, origin *url.URL, resp *http.Response) []model.Cookie {
	cookies := make([]model.Cookie, 0)
	if jar == nil {
		return cookies
	}

	attrs := make(map[string]*http.Cookie)
	for _, c := range resp.Cookies() {
		attrs[c.Name] = c
	}

	seen := make(map[string]struct{})
	for _, u := range []*url.URL{origin, resp.Request.URL} {
		for _, c := range jar.Cookies(u) {
			key := c.Name + "=" + c.Value
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			mc := model.Cookie{Name: c.Name, Value: c.Value, Domain: u.Hostname()}
			if a, ok := attrs[c.Name]; ok && a.Value == c.Value {
				if a.Domain != "" {
					mc.Domain = a.Domain
				}
				mc.Path = a.Path
				if !a.Expires.IsZero() {
					exp := a.Expires
					mc.Expires = &exp
				}
			}
			cookies = append(cookies, mc)
		}
	}
	return cookies
}

// resolveStep records the target host's addresses.
type resolveStep struct {
	resolver Resolver
	host     string
	timeout  time.Duration
}

func (s *resolveStep) Name() string { return StepResolve }

func (s *resolveStep) Do(ctx context.Context, result *model.ProbeResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	addrs, err := resolveHost(ctx, s.resolver, s.host)
	if err != nil {
		result.ResolvedAddresses = []string{}
		result.Warnings = append(result.Warnings, model.NewWarning(s.Name(), model.WarningDNS, err))
		return nil
	}
	result.ResolvedAddresses = addrs
	return nil
}

// detectStep runs technology detection on the fetched content.
type detectStep struct {
	detector Detector
}

func (s *detectStep) Name() string { return StepDetect }

func (s *detectStep) Do(ctx context.Context, result *model.ProbeResult) error {
	techs, err := s.detector.Detect(ctx, result)
	if err != nil {
		result.Warnings = append(result.Warnings, model.NewWarning(s.Name(), model.WarningRules, err))
		return nil
	}
	result.Technologies = techs
	return nil
}

// screenshotStep renders the final URL.
type screenshotStep struct {
	screenshotter Screenshotter
	target        model.Target
}

func (s *screenshotStep) Name() string { return StepScreenshot }

func (s *screenshotStep) Do(ctx context.Context, result *model.ProbeResult) error {
	path, err := s.screenshotter.Capture(ctx, s.target, result.FinalURI)
	if err != nil {
		result.Warnings = append(result.Warnings,
			model.NewWarning(s.Name(), model.WarningScreenshot, fmt.Errorf("%w: %w", ErrScreenshot, err)))
		return nil
	}
	result.ScreenshotPath = path
	return nil
}
