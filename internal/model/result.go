package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// ProbeResult is the record produced by one successful probe.
// It is assembled once by the prober and must not be mutated afterwards;
// every consumer (fingerprinting, reporting, storage) only reads it.
type ProbeResult struct {
	// OriginURI is the URL the probe was issued against.
	OriginURI string `json:"origin_uri"`

	// FinalURI is the URL of the last response. It equals OriginURI
	// unless redirect following was enabled and a redirect happened.
	FinalURI string `json:"final_uri"`

	// StatusCode is the HTTP status of the final response.
	StatusCode int `json:"status_code"`

	// Success is true for 2xx status codes.
	Success bool `json:"success"`

	// ResponseHeaders are the final response headers in canonical form.
	ResponseHeaders http.Header `json:"response_headers"`

	// RequestHeaders are the headers actually sent on the final request.
	RequestHeaders http.Header `json:"request_headers"`

	// Cookies holds the cookies this probe's own jar collected.
	Cookies []Cookie `json:"cookies"`

	// ResolvedAddresses is empty when resolution is disabled or failed.
	ResolvedAddresses []string `json:"resolved_addresses"`

	// Content is the response body decoded as text.
	Content string `json:"content"`

	// ContentSHA256 is the lowercase hex digest of the raw body, see ComputeDigest.
	ContentSHA256 string `json:"content_sha256"`

	// Title is the HTML document title, if any.
	Title string `json:"title,omitempty"`

	// ScreenshotPath is set when a screenshot was captured.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// Technologies is set when technology detection was enabled.
	Technologies []Technology `json:"technologies,omitempty"`

	// Warnings records optional sub-operations that failed.
	Warnings []Warning `json:"warnings,omitempty"`

	// Duration is the wall time of the whole probe.
	Duration time.Duration `json:"duration"`
}

// Cookie is a cookie observed by a probe.
type Cookie struct {
	Name    string     `json:"name"`
	Value   string     `json:"value"`
	Domain  string     `json:"domain,omitempty"`
	Path    string     `json:"path,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
}

// IsSuccessStatus reports whether code is in the 2xx range.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code <= 299
}

// ComputeDigest returns the lowercase hex SHA-256 of the response body as
// received. Every byte is one unit of input, the single-byte (ISO-8859-1)
// view of the body, so any byte change yields a different digest regardless
// of how the body decodes as text.
func ComputeDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Header returns the first value of the named response header.
func (r *ProbeResult) Header(name string) string {
	return r.ResponseHeaders.Get(name)
}

// HasWarnings reports whether any optional sub-operation failed.
func (r *ProbeResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}
