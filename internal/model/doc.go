// Package model defines the data structures shared by the httpdoom packages.
//
// This package contains the following main types:
//   - Target: A concrete scheme, host and port combination to probe
//   - ProbeResult: The immutable record produced by one successful probe
//   - Cookie: A cookie observed in a probe's own cookie jar
//   - Technology: A technology detected on a probed target
//   - Warning: A sub-operation failure that did not fail the probe
//
// The types live in their own package so that the prober, the fingerprint
// matcher and the report writers can share them without import cycles.
// All types serialize to JSON for the general and per-target reports.
package model
