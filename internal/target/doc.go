// Package target expands a list of domains and ports into concrete probe targets.
//
// Expansion follows the usual web conventions:
//   - port 80 yields only http://domain
//   - port 443 yields only https://domain
//   - any other port yields both http://domain:port and https://domain:port
//
// Output order is domain-major, port-minor, with http before https for
// non-standard ports. Duplicate domain and port pairs collapse, so every
// rendered URL in one expansion is unique.
package target
