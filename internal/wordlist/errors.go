package wordlist

import "errors"

var (
	// ErrInvalidHost is returned for lines that do not name a valid host.
	ErrInvalidHost = errors.New("invalid host")

	// ErrEmpty is returned when a word list yields no valid host.
	ErrEmpty = errors.New("word list contains no valid host")

	// ErrFetch is returned when a remote word list cannot be downloaded.
	ErrFetch = errors.New("failed to fetch word list")
)
