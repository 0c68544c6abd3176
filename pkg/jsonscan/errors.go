package jsonscan

import "errors"

// Sentinel errors returned by the scanner.
var (
	// ErrTokenNotFound is returned when the searched token never appears.
	ErrTokenNotFound = errors.New("token not found")

	// ErrEmptyToken is returned when Locate is called with an empty token.
	ErrEmptyToken = errors.New("empty token")

	// ErrTruncated is returned when the stream ends before the array opened
	// or before the array (or an element in it) closed.
	ErrTruncated = errors.New("document truncated")

	// ErrNotArray is returned when something other than whitespace or a colon
	// appears between a located key and the opening bracket of its value.
	ErrNotArray = errors.New("token is not followed by an array")

	// ErrUnbalanced is returned when a closing brace appears outside any element.
	ErrUnbalanced = errors.New("unbalanced brackets")

	// ErrRead wraps failures of the underlying reader.
	ErrRead = errors.New("read failed")
)
