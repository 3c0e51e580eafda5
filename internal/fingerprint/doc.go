// Package fingerprint matches compiled technology rules against probe results.
//
// Header, cookie and content matchers are evaluated against a ProbeResult.
// JavaScript matchers need a script runtime and therefore never match; this
// is a known limitation, not an error.
//
// After direct matching, the set of detected vendors is closed under the
// rules' implies relation. The closure uses an explicit worklist with a
// visited set, so it terminates on cyclic implications and its result does
// not depend on map iteration order. Implied vendors without a rule of their
// own are still reported by name.
package fingerprint
