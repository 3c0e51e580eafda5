package transport

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidProxy is returned when a proxy string cannot be parsed.
var ErrInvalidProxy = errors.New("invalid proxy: expected host:port or a http, https, socks5 or socks5h URL")

// supportedProxySchemes lists the URL schemes ParseProxy accepts.
var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// ParseProxy parses an operator proxy string. A bare "host:port" is treated
// as an HTTP proxy. An empty string yields a nil URL and no error.
func ParseProxy(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil //nolint:nilnil // no proxy configured
	}

	if !strings.Contains(s, "://") {
		if !isValidHostPort(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, s)
		}
		return &url.URL{Scheme: "http", Host: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !supportedProxySchemes[u.Scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	if !isValidHostPort(u.Host) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, s)
	}
	return u, nil
}

// isSOCKS reports whether u needs a SOCKS dialer.
func isSOCKS(u *url.URL) bool {
	return u.Scheme == "socks5" || u.Scheme == "socks5h"
}

// isValidHostPort checks for a non-empty host and a numeric port in 1-65535.
func isValidHostPort(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
