package model

import (
	"net"
	"strconv"
	"strings"
)

// Scheme names accepted by Target.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// Target is a single probe destination.
// A zero Port means the scheme default and is omitted from the URL.
type Target struct {
	// Scheme is either SchemeHTTP or SchemeHTTPS.
	Scheme string `json:"scheme"`

	// Host is the domain name or IP literal, without port.
	Host string `json:"host"`

	// Port is the explicit TCP port, or 0 for the scheme default.
	Port int `json:"port,omitempty"`
}

// NewTarget returns a Target for the given scheme, host and port.
func NewTarget(scheme, host string, port int) Target {
	return Target{Scheme: scheme, Host: host, Port: port}
}

// URL renders the target as an absolute URL without a path, e.g. "http://example.com" or "https://example.com:8443".
func (t Target) URL() string {
	return t.Scheme + "://" + t.Authority()
}

// Authority returns host[:port] as it appears in the URL.
func (t Target) Authority() string {
	if t.Port == 0 {
		if strings.Contains(t.Host, ":") {
			return "[" + t.Host + "]"
		}
		return t.Host
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// EffectivePort returns the port the connection will actually use.
func (t Target) EffectivePort() int {
	if t.Port != 0 {
		return t.Port
	}
	if t.Scheme == SchemeHTTPS {
		return 443
	}
	return 80
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return t.URL()
}
