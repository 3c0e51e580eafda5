package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the class of every error returned by Config.Validate
// and PrepareOutputDir. Callers test for it with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// Configuration validation errors.
var (
	// ErrNoWordList is returned when no word list was given.
	ErrNoWordList = fmt.Errorf("%w: no word list specified: use --word-list", ErrConfiguration)

	// ErrInvalidThreads is returned when the worker count is not positive.
	ErrInvalidThreads = fmt.Errorf("%w: invalid threads: must be positive", ErrConfiguration)

	// ErrTimeoutTooShort is returned when the HTTP timeout is below MinTimeout.
	ErrTimeoutTooShort = fmt.Errorf("%w: http timeout too short: must be at least %s", ErrConfiguration, MinTimeout)

	// ErrNoPorts is returned when the port list is empty.
	ErrNoPorts = fmt.Errorf("%w: no ports specified", ErrConfiguration)

	// ErrInvalidPort is returned for a port outside 1-65535.
	ErrInvalidPort = fmt.Errorf("%w: invalid port: must be between 1 and 65535", ErrConfiguration)

	// ErrInvalidProxy is returned when the proxy string cannot be used.
	ErrInvalidProxy = fmt.Errorf("%w: invalid proxy", ErrConfiguration)

	// ErrInvalidHeader is returned for a header not in "Name: value" form.
	ErrInvalidHeader = fmt.Errorf("%w: invalid header: expected \"Name: value\"", ErrConfiguration)

	// ErrInvalidMaxRedirects is returned when the redirect cap is negative.
	ErrInvalidMaxRedirects = fmt.Errorf("%w: invalid max redirects: must be non-negative", ErrConfiguration)

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = fmt.Errorf("%w: invalid max body size: must be non-negative", ErrConfiguration)

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	ErrInvalidRateLimit = fmt.Errorf("%w: invalid rate limit: must be non-negative", ErrConfiguration)

	// ErrInvalidResolution is returned for a malformed screenshot resolution.
	ErrInvalidResolution = fmt.Errorf("%w: invalid screenshot resolution", ErrConfiguration)

	// ErrOutputNotEmpty is returned when the output directory already has content.
	ErrOutputNotEmpty = fmt.Errorf("%w: output directory is not empty", ErrConfiguration)
)
