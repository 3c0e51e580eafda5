package config

import (
	"net/http"
	"strings"
)

// Defaults are run-wide values from the .httpdoom file. CLI flags win.
type Defaults struct {
	// Ports replaces the default port list.
	Ports []int `yaml:"ports,omitempty"`

	// Threads replaces the default worker count.
	Threads int `yaml:"threads,omitempty"`

	// Timeout is the HTTP timeout in milliseconds.
	Timeout int `yaml:"timeout,omitempty"`

	// Proxy is used unless --proxy is given.
	Proxy string `yaml:"proxy,omitempty"`

	// UserAgent is used unless --user-agent is given.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are sent to every host. --header lines are added after them.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// HostConfig holds overrides for a single host.
type HostConfig struct {
	// Headers are sent only to this host and win over run-wide headers.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .httpdoom configuration file.
type File struct {
	// Defaults apply to every probe.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// Hosts maps a host name, without scheme or port, to its overrides.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`
}

// HostHeaders returns the per-host header overrides keyed by lower-cased host.
func (f *File) HostHeaders() map[string]http.Header {
	out := make(map[string]http.Header, len(f.Hosts))
	for host, hc := range f.Hosts {
		if len(hc.Headers) == 0 {
			continue
		}
		h := make(http.Header, len(hc.Headers))
		for name, value := range hc.Headers {
			h.Set(name, value)
		}
		out[strings.ToLower(host)] = h
	}
	return out
}
