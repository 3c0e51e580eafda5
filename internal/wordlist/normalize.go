package wordlist

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Normalize reduces a word list line to a bare host. It strips any scheme,
// userinfo, path, port and trailing dot, converts the name to ASCII and
// validates it.
func Normalize(line string) (string, error) {
	host := strings.ToLower(strings.TrimSpace(line))
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	host = stripPort(host)
	host = strings.TrimPrefix(host, "*.")
	host = strings.TrimSuffix(host, ".")

	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, line)
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidHost, line, err)
	}

	if !hasKnownSuffix(ascii) {
		return "", fmt.Errorf("%w: %q: unknown public suffix", ErrInvalidHost, line)
	}
	return ascii, nil
}

// stripPort removes a trailing :port, keeping bracketed IPv6 literals intact.
func stripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
		return host
	}
	if strings.Count(host, ":") == 1 {
		return host[:strings.Index(host, ":")]
	}
	return host
}

// hasKnownSuffix reports whether domain sits strictly below a suffix from
// the public suffix list.
func hasKnownSuffix(domain string) bool {
	if !strings.Contains(domain, ".") {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(domain)
	if !icann && !strings.Contains(suffix, ".") {
		return false
	}
	return suffix != domain
}
