// Package rules loads and compiles Wappalyzer-style technology fingerprint rules.
//
// The rule document is the community technologies.json file. It maps vendor
// names to pattern sets (headers, cookies, html, js) plus metadata such as
// categories, website and the implies list. Several fields may be either a
// single string or an array of strings; StringList normalizes both forms.
//
// # Pattern syntax
//
// Each pattern is a regular expression optionally followed by directives
// separated by the two-character sequence `\;`:
//
//	Apache(?:/([\d.]+))?\;version:\1\;confidence:50
//
// Recognized directives are version (a template referencing capture groups,
// with \1-style references and \1?a:b ternaries) and confidence (an integer,
// default 100). Unknown directives are ignored. An empty expression matches
// any present value. Expressions are matched case-insensitively.
//
// # Loading
//
// Loader fetches the document once and caches it on disk under the XDG cache
// directory. A present cache file is always used as-is; there is no refresh.
// Concurrent first callers share a single fetch.
//
// # Compilation
//
// Compile turns a Document into an immutable RuleSet. Category ids that are
// not present in the document's category map are dropped and counted in
// CompileStats. Patterns that are not valid Go regular expressions are
// skipped and counted as well, so one bad pattern never disables a vendor.
package rules
