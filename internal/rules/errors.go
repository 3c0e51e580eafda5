package rules

import "errors"

var (
	// ErrRuleFetch is returned when the rule document cannot be fetched,
	// read from the cache or parsed.
	ErrRuleFetch = errors.New("failed to load technology rules")

	// ErrNilDocument is returned by Compile when given a nil document.
	ErrNilDocument = errors.New("rule document is nil")
)
