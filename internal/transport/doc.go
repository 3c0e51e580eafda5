// Package transport builds the HTTP clients used by probes.
//
// Every probe gets a client of its own: a fresh http.Transport, a fresh
// cookie jar and a TLS configuration that skips certificate verification.
// Nothing is shared between clients, so cookies set by one target are never
// sent to another and relaxing TLS verification never affects other HTTP
// traffic in the process.
//
// An optional operator proxy applies to every client. HTTP proxies are used
// through http.ProxyURL, SOCKS5 proxies through golang.org/x/net/proxy.
//
// Redirects are not followed unless the caller asks for it, in which case the
// number of hops is capped.
package transport
