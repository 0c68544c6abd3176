package model

import "errors"

// Fatal error categories surfaced by queries. Not-found outcomes are results,
// not errors.
var (
	// ErrSourceUnavailable is returned when the document cannot be opened.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrStructuralTruncation is returned when the document ends, or is
	// malformed, inside the array being scanned.
	ErrStructuralTruncation = errors.New("structural truncation")

	// ErrElementParse marks a single element that is not valid JSON. It is
	// recovered locally and never returned by a query.
	ErrElementParse = errors.New("element parse error")

	// ErrStreamIO is returned when reading the document fails.
	ErrStreamIO = errors.New("stream read failure")

	// ErrCancelled is returned when the caller aborted the query.
	ErrCancelled = errors.New("query cancelled")

	// ErrInvalidQuery is returned for queries that cannot be executed.
	ErrInvalidQuery = errors.New("invalid query")
)
