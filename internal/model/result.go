package model

import "encoding/json"

// MatchStatus is the outcome of a single-element query.
type MatchStatus string

const (
	// MatchFound means an element satisfied the query.
	MatchFound MatchStatus = "found"
	// MatchNotFound means the array was exhausted, or absent, without a match.
	MatchNotFound MatchStatus = "not_found"
	// MatchEmpty means first-element mode found no element to return.
	MatchEmpty MatchStatus = "empty"
)

// MatchResult is returned by the field-match and first-element queries.
type MatchResult struct {
	Status       MatchStatus
	ArrayPresent bool
	// Element is the verbatim text of the matched element.
	Element json.RawMessage
	// Value is the target value of a field query. Empty in first-element mode.
	Value string
	// DerivedIdentifiers are deduplicated in first-seen order.
	DerivedIdentifiers []any
	Stats              ScanStats
}

// Found reports whether an element was matched.
func (r MatchResult) Found() bool {
	return r.Status == MatchFound
}

// IdentifierValues holds the dependent values collected for one identifier.
type IdentifierValues struct {
	Identifier string
	Values     []any
}

// MultiIDResult is returned by identifier collection.
// Found and Missing partition the requested identifiers.
type MultiIDResult struct {
	ByID         map[string]IdentifierValues
	Found        []string
	Missing      []string
	ArrayPresent bool
	Stats        ScanStats
}

// IndexEntry is one element listed by an index walk.
type IndexEntry struct {
	Ordinal int
	Offset  int64
	Value   string
	Present bool
}
