package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultConfidence applies to patterns without a confidence directive.
const DefaultConfidence = 100

// directiveSeparator splits a pattern from its directives.
const directiveSeparator = `\;`

// Pattern is a compiled rule pattern.
type Pattern struct {
	// Raw is the pattern exactly as it appeared in the document.
	Raw string

	// Confidence is the confidence this pattern contributes when it matches.
	Confidence int

	// Version is the version template, empty when the pattern has none.
	Version string

	// regex is nil for an empty expression, which matches any value.
	regex *regexp.Regexp
}

// ParsePattern compiles a pattern string with its directives.
// The returned error wraps the regexp compilation failure.
func ParsePattern(raw string) (*Pattern, error) {
	parts := strings.Split(raw, directiveSeparator)

	p := &Pattern{
		Raw:        raw,
		Confidence: DefaultConfidence,
	}

	for _, directive := range parts[1:] {
		key, value, ok := strings.Cut(directive, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "version":
			p.Version = value
		case "confidence":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				p.Confidence = n
			}
		}
	}

	expr := stripSlashes(parts[0])
	if expr == "" {
		return p, nil
	}

	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", raw, err)
	}
	p.regex = re

	return p, nil
}

// stripSlashes removes JavaScript-style /.../ delimiters.
func stripSlashes(expr string) string {
	if len(expr) > 2 && expr[0] == '/' && expr[len(expr)-1] == '/' {
		return expr[1 : len(expr)-1]
	}
	return expr
}

// Match reports whether value matches and returns the resolved version.
func (p *Pattern) Match(value string) (bool, string) {
	if p.regex == nil {
		return true, resolveVersion(p.Version, nil)
	}

	groups := p.regex.FindStringSubmatch(value)
	if groups == nil {
		return false, ""
	}
	return true, resolveVersion(p.Version, groups)
}

// MatchesAny reports whether the pattern has no expression.
func (p *Pattern) MatchesAny() bool {
	return p.regex == nil
}

var (
	ternaryRef = regexp.MustCompile(`\\(\d)\?([^:]*):(.*)`)
	groupRef   = regexp.MustCompile(`\\(\d)`)
)

// resolveVersion expands a version template against regexp groups.
// groups[0] is the full match as returned by FindStringSubmatch.
func resolveVersion(template string, groups []string) string {
	if template == "" {
		return ""
	}

	group := func(ref string) string {
		i, err := strconv.Atoi(ref)
		if err != nil || i >= len(groups) {
			return ""
		}
		return groups[i]
	}

	// \1?a:b yields a when group 1 matched something, b otherwise.
	if m := ternaryRef.FindStringSubmatch(template); m != nil {
		if group(m[1]) != "" {
			template = strings.Replace(template, m[0], m[2], 1)
		} else {
			template = strings.Replace(template, m[0], m[3], 1)
		}
	}

	resolved := groupRef.ReplaceAllStringFunc(template, func(ref string) string {
		return group(ref[1:])
	})

	return strings.TrimSpace(resolved)
}
