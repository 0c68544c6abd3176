package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/theory/jsonpath"
	"github.com/tidwall/gjson"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

// Outcome is the verdict of a predicate on one element.
type Outcome int

const (
	// OutcomeContinue asks for the next element.
	OutcomeContinue Outcome = iota
	// OutcomeFound ends the scan.
	OutcomeFound
)

// Predicate decides whether an element ends a query.
// Elements handed to Apply are valid JSON and must not be retained.
type Predicate interface {
	Apply(element []byte) (Outcome, error)
}

// ElementEvaluator validates captured elements before handing them to a
// predicate and keeps per-query counters.
type ElementEvaluator struct {
	Scanned int
	Corrupt int
	logger  *slog.Logger
}

// NewElementEvaluator returns an evaluator logging through logger.
func NewElementEvaluator(logger *slog.Logger) *ElementEvaluator {
	if logger == nil {
		logger = slog.Default()
	}

	return &ElementEvaluator{logger: logger}
}

// Evaluate runs p on element. An element that is not valid JSON, or that p
// fails to decode, yields an error wrapping model.ErrElementParse and is
// counted as corrupt; callers skip it and keep scanning.
func (e *ElementEvaluator) Evaluate(element []byte, p Predicate) (Outcome, error) {
	e.Scanned++

	if !gjson.ValidBytes(element) {
		e.Corrupt++
		e.logger.Debug("skipping malformed element", "ordinal", e.Scanned, "size", len(element))

		return OutcomeContinue, fmt.Errorf("%w: element %d", m.ErrElementParse, e.Scanned)
	}

	outcome, err := p.Apply(element)
	if errors.Is(err, m.ErrElementParse) {
		e.Corrupt++
		e.logger.Debug("skipping undecodable element", "ordinal", e.Scanned, "error", err)
	}

	return outcome, err
}

// FieldMatch matches the first element whose Field, as text, equals Target.
type FieldMatch struct {
	path   string
	target string
}

// NewFieldMatch builds a FieldMatch for a literal top-level field name.
func NewFieldMatch(field, target string) *FieldMatch {
	return &FieldMatch{path: gjson.Escape(field), target: target}
}

// Apply implements Predicate.
func (f *FieldMatch) Apply(element []byte) (Outcome, error) {
	value := gjson.GetBytes(element, f.path)
	if !value.Exists() {
		return OutcomeContinue, nil
	}

	if fieldText(value) == f.target {
		return OutcomeFound, nil
	}

	return OutcomeContinue, nil
}

// FirstElement matches any element.
type FirstElement struct{}

// Apply implements Predicate.
func (FirstElement) Apply([]byte) (Outcome, error) {
	return OutcomeFound, nil
}

// IdentifierCollector gathers dependent values for a set of wanted
// identifiers and reports OutcomeFound once every one has been seen.
type IdentifierCollector struct {
	idPath    string
	values    *jsonpath.Path
	order     []string
	wanted    map[string]*valueSet
	remaining map[string]struct{}
}

// NewIdentifierCollector collects values selected by values from elements
// whose idField is one of ids. Duplicate ids are ignored.
func NewIdentifierCollector(idField string, values *jsonpath.Path, ids []string) *IdentifierCollector {
	c := &IdentifierCollector{
		idPath:    gjson.Escape(idField),
		values:    values,
		wanted:    make(map[string]*valueSet, len(ids)),
		remaining: make(map[string]struct{}, len(ids)),
	}

	for _, id := range ids {
		if _, dup := c.wanted[id]; dup {
			continue
		}

		c.order = append(c.order, id)
		c.wanted[id] = nil
		c.remaining[id] = struct{}{}
	}

	return c
}

// Apply implements Predicate.
func (c *IdentifierCollector) Apply(element []byte) (Outcome, error) {
	raw := gjson.GetBytes(element, c.idPath)
	if !raw.Exists() {
		return OutcomeContinue, nil
	}

	id := fieldText(raw)

	set, wanted := c.wanted[id]
	if !wanted {
		return OutcomeContinue, nil
	}

	data, err := decodeElement(element)
	if err != nil {
		return OutcomeContinue, err
	}

	if set == nil {
		set = newValueSet()
		c.wanted[id] = set
	}

	for _, node := range c.values.Select(data) {
		if err := set.add(node); err != nil {
			return OutcomeContinue, err
		}
	}

	delete(c.remaining, id)

	if len(c.remaining) == 0 {
		return OutcomeFound, nil
	}

	return OutcomeContinue, nil
}

// Remaining reports how many identifiers have not been seen yet.
func (c *IdentifierCollector) Remaining() int {
	return len(c.remaining)
}

// Result partitions the wanted identifiers, in request order, into found
// and missing, with the values of every found identifier.
func (c *IdentifierCollector) Result() (map[string]m.IdentifierValues, []string, []string) {
	byID := make(map[string]m.IdentifierValues, len(c.order))
	found := []string{}
	missing := []string{}

	for _, id := range c.order {
		set := c.wanted[id]
		if set == nil {
			missing = append(missing, id)
			continue
		}

		found = append(found, id)
		byID[id] = m.IdentifierValues{Identifier: id, Values: set.values}
	}

	return byID, found, missing
}

// FieldLister records one field of every element it sees. It reports
// OutcomeFound only when a positive limit is reached.
type FieldLister struct {
	path     string
	limit    int
	listed   int
	position func() int64
	sink     func(m.IndexEntry) error
}

// NewFieldLister lists field into sink. position must return the offset
// just past the element being applied.
func NewFieldLister(field string, limit int, position func() int64, sink func(m.IndexEntry) error) *FieldLister {
	return &FieldLister{
		path:     gjson.Escape(field),
		limit:    limit,
		position: position,
		sink:     sink,
	}
}

// Apply implements Predicate.
func (l *FieldLister) Apply(element []byte) (Outcome, error) {
	entry := m.IndexEntry{
		Ordinal: l.listed,
		Offset:  l.position() - int64(len(element)),
	}

	if value := gjson.GetBytes(element, l.path); value.Exists() {
		entry.Value = fieldText(value)
		entry.Present = true
	}

	l.listed++

	if err := l.sink(entry); err != nil {
		return OutcomeContinue, err
	}

	if l.limit > 0 && l.listed >= l.limit {
		return OutcomeFound, nil
	}

	return OutcomeContinue, nil
}

// fieldText renders a field value for comparison: strings by content,
// everything else by its literal JSON text.
func fieldText(value gjson.Result) string {
	if value.Type == gjson.String {
		return value.Str
	}

	return value.Raw
}

// decodeElement decodes an element keeping numbers as json.Number.
func decodeElement(element []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(element))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %w", m.ErrElementParse, err)
	}

	return data, nil
}

// selectUnique returns the nodes selected by path from element, without
// duplicates, in first-seen order.
func selectUnique(element []byte, path *jsonpath.Path) ([]any, error) {
	data, err := decodeElement(element)
	if err != nil {
		return nil, err
	}

	set := newValueSet()
	for _, node := range path.Select(data) {
		if err := set.add(node); err != nil {
			return nil, err
		}
	}

	return set.values, nil
}

// valueSet is an insertion-ordered set keyed by canonical JSON encoding, so
// 1 and "1" are distinct members.
type valueSet struct {
	seen   map[string]struct{}
	values []any
}

func newValueSet() *valueSet {
	return &valueSet{seen: map[string]struct{}{}, values: []any{}}
}

func (s *valueSet) add(v any) error {
	key, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}

	if _, ok := s.seen[string(key)]; ok {
		return nil
	}

	s.seen[string(key)] = struct{}{}
	s.values = append(s.values, v)

	return nil
}
