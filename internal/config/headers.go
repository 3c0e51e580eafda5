package config

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// ParseHeader splits a "Name: value" line into its canonical name and value.
func ParseHeader(line string) (string, string, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, line)
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, line)
	}
	return http.CanonicalHeaderKey(name), value, nil
}

// ParseHeaders parses "Name: value" lines into an http.Header. A later line
// with the same name replaces the earlier one.
func ParseHeaders(lines []string) (http.Header, error) {
	h := make(http.Header, len(lines))
	for _, line := range lines {
		name, value, err := ParseHeader(line)
		if err != nil {
			return nil, err
		}
		h.Set(name, value)
	}
	return h, nil
}

// headerLines renders a name to value map as sorted "Name: value" lines.
func headerLines(m map[string]string) []string {
	lines := make([]string, 0, len(m))
	for name, value := range m {
		lines = append(lines, name+": "+value)
	}
	slices.Sort(lines)
	return lines
}
