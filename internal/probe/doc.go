// Package probe issues a single HTTP request against a target and assembles
// the resulting ProbeResult.
//
// A Prober is configured once with Capabilities and optional collaborators
// (resolver, technology detector, screenshotter). For every target it builds
// a fresh pipeline:
//
//	fetch -> resolve -> detect -> screenshot
//
// fetch is mandatory and turns any error into a *Failure. The other steps are
// enabled by Capabilities and record their failures as warnings on the
// result instead of failing the probe.
//
// Each probe uses its own HTTP client from the transport package, so cookies
// and TLS settings never leak between targets.
package probe
