package fingerprint

import (
	"net/http"
	"slices"
	"strings"

	"github.com/nao1215/httpdoom/internal/model"
	"github.com/nao1215/httpdoom/internal/rules"
)

// maxConfidence caps the accumulated confidence of a vendor.
const maxConfidence = 100

// Detection is the evidence collected for one vendor.
type Detection struct {
	Vendor     string
	Version    string
	Confidence int

	// Implied is true when the vendor was reached only through implies.
	Implied bool
}

// Result is the outcome of matching one probe result.
type Result struct {
	// Vendors is the implication-closed set of detected vendor names.
	Vendors map[string]struct{}

	// Detections holds per-vendor evidence for every member of Vendors.
	Detections map[string]*Detection
}

// Has reports whether vendor was detected.
func (r Result) Has(vendor string) bool {
	_, ok := r.Vendors[vendor]
	return ok
}

// Names returns the detected vendor names in sorted order.
func (r Result) Names() []string {
	names := make([]string, 0, len(r.Vendors))
	for v := range r.Vendors {
		names = append(names, v)
	}
	slices.Sort(names)
	return names
}

// Match evaluates every rule of rs against result and returns the
// implication-closed vendor set.
func Match(rs *rules.RuleSet, result *model.ProbeResult) Result {
	res := Result{
		Vendors:    make(map[string]struct{}),
		Detections: make(map[string]*Detection),
	}
	if rs == nil || result == nil {
		return res
	}

	headers := normalizeHeaders(result.ResponseHeaders)
	cookies := collectCookies(result)

	rs.All(func(rule *rules.Rule) bool {
		det := &Detection{Vendor: rule.Vendor}
		matched := false

		record := func(p *rules.Pattern, version string) {
			matched = true
			det.Confidence = min(det.Confidence+p.Confidence, maxConfidence)
			if len(version) > len(det.Version) {
				det.Version = version
			}
		}

		for _, hm := range rule.HeaderMatchers {
			for _, value := range headers[hm.Name] {
				if ok, version := hm.Pattern.Match(value); ok {
					record(hm.Pattern, version)
					break
				}
			}
		}

		for _, cm := range rule.CookieMatchers {
			values, ok := lookupCookie(cookies, cm.Name)
			if !ok {
				continue
			}
			for _, value := range values {
				if ok, version := cm.Pattern.Match(value); ok {
					record(cm.Pattern, version)
					break
				}
			}
		}

		for _, p := range rule.ContentMatchers {
			if ok, version := p.Match(result.Content); ok {
				record(p, version)
			}
		}

		if matched {
			res.Vendors[rule.Vendor] = struct{}{}
			res.Detections[rule.Vendor] = det
		}
		return true
	})

	closeImplications(rs, res)
	return res
}

// closeImplications adds every vendor reachable through implies.
func closeImplications(rs *rules.RuleSet, res Result) {
	queue := make([]string, 0, len(res.Vendors))
	for v := range res.Vendors {
		queue = append(queue, v)
	}
	// Deterministic confidence inheritance regardless of map order.
	slices.Sort(queue)

	for len(queue) > 0 {
		vendor := queue[0]
		queue = queue[1:]

		rule, ok := rs.Get(vendor)
		if !ok {
			continue
		}
		for _, implied := range rule.Implies {
			if _, seen := res.Vendors[implied]; seen {
				continue
			}
			res.Vendors[implied] = struct{}{}
			res.Detections[implied] = &Detection{
				Vendor:     implied,
				Confidence: res.Detections[vendor].Confidence,
				Implied:    true,
			}
			queue = append(queue, implied)
		}
	}
}

// normalizeHeaders lower-cases header names.
func normalizeHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		out[key] = append(out[key], values...)
	}
	return out
}

// collectCookies merges the probe's jar cookies with Set-Cookie headers of
// the final response, keyed by cookie name.
func collectCookies(result *model.ProbeResult) map[string][]string {
	out := make(map[string][]string, len(result.Cookies))
	for _, c := range result.Cookies {
		out[c.Name] = append(out[c.Name], c.Value)
	}
	for _, line := range result.ResponseHeaders.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		if !slices.Contains(out[c.Name], c.Value) {
			out[c.Name] = append(out[c.Name], c.Value)
		}
	}
	return out
}

// lookupCookie finds a cookie by exact name, then case-insensitively.
func lookupCookie(cookies map[string][]string, name string) ([]string, bool) {
	if v, ok := cookies[name]; ok {
		return v, true
	}
	for k, v := range cookies {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
