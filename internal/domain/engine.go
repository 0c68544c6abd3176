package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theory/jsonpath"

	"jumpscan.dev/pkg/jumpscan/internal/adapter"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
	"jumpscan.dev/pkg/jumpscan/pkg/jsonscan"
)

// ProgressFunc receives the offset reached in the document and its size.
type ProgressFunc func(read, total int64)

// QueryOption configures a single query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	progress ProgressFunc
}

// WithProgress reports scan progress at every chunk boundary.
func WithProgress(fn ProgressFunc) QueryOption {
	return func(c *queryConfig) {
		c.progress = fn
	}
}

// QueryEngine runs single-pass queries over large JSON documents.
type QueryEngine interface {
	// FindElementByField returns the first element of the array whose field
	// equals the query value, with its derived identifiers.
	FindElementByField(ctx context.Context, q m.FieldQuery, opts ...QueryOption) (m.MatchResult, error)

	// FindFirstElement returns the first element of the array.
	FindFirstElement(ctx context.Context, q m.ArrayQuery, opts ...QueryOption) (m.MatchResult, error)

	// CollectByIdentifiers gathers dependent values for every wanted
	// identifier and stops as soon as all of them were seen.
	CollectByIdentifiers(ctx context.Context, q m.CollectQuery, opts ...QueryOption) (m.MultiIDResult, error)

	// ListFieldValues hands one IndexEntry per element to sink.
	ListFieldValues(ctx context.Context, q m.ListQuery, sink func(m.IndexEntry) error, opts ...QueryOption) (m.ScanStats, error)
}

// EngineOption configures the query engine.
type EngineOption func(*queryEngine)

// WithChunkSize sets the read size used by every query.
func WithChunkSize(size int) EngineOption {
	return func(e *queryEngine) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

type queryEngine struct {
	source    adapter.DocumentSource
	chunkSize int
}

// NewQueryEngine creates a QueryEngine reading documents from source.
func NewQueryEngine(source adapter.DocumentSource, opts ...EngineOption) QueryEngine {
	e := &queryEngine{source: source, chunkSize: jsonscan.DefaultChunkSize}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *queryEngine) FindElementByField(ctx context.Context, q m.FieldQuery, opts ...QueryOption) (m.MatchResult, error) {
	if q.Field == "" {
		return m.MatchResult{}, fmt.Errorf("%w: empty match field", m.ErrInvalidQuery)
	}

	result, err := e.findElement(ctx, "find", q.ArrayQuery, NewFieldMatch(q.Field, q.Value), opts,
		"field", q.Field, "value", q.Value)
	result.Value = q.Value

	return result, err
}

func (e *queryEngine) FindFirstElement(ctx context.Context, q m.ArrayQuery, opts ...QueryOption) (m.MatchResult, error) {
	result, err := e.findElement(ctx, "first", q, FirstElement{}, opts)
	if err == nil && result.ArrayPresent && result.Status == m.MatchNotFound {
		result.Status = m.MatchEmpty
	}

	return result, err
}

func (e *queryEngine) findElement(
	ctx context.Context,
	kind string,
	q m.ArrayQuery,
	predicate Predicate,
	opts []QueryOption,
	attrs ...any,
) (m.MatchResult, error) {
	var derived *jsonpath.Path

	if q.DerivedPath != "" {
		path, err := jsonpath.Parse(q.DerivedPath)
		if err != nil {
			return m.MatchResult{}, fmt.Errorf("%w: derived path %q: %w", m.ErrInvalidQuery, q.DerivedPath, err)
		}

		derived = path
	}

	run := e.newRun(kind, target{document: q.Document, arrayKey: q.ArrayKey, skip: q.SkipArrays}, opts, attrs...)

	outcome, err := run.execute(ctx, predicate, true)
	if err != nil {
		return m.MatchResult{Stats: outcome.stats}, err
	}

	result := m.MatchResult{
		Status:       m.MatchNotFound,
		ArrayPresent: outcome.present,
		Stats:        outcome.stats,
	}

	if outcome.matched != nil {
		result.Status = m.MatchFound
		result.Element = json.RawMessage(outcome.matched)
		result.DerivedIdentifiers = []any{}

		if derived != nil {
			ids, err := selectUnique(outcome.matched, derived)
			if err != nil {
				return result, err
			}

			result.DerivedIdentifiers = ids
		}
	}

	run.finish(string(result.Status), "derived", len(result.DerivedIdentifiers))

	return result, nil
}

func (e *queryEngine) CollectByIdentifiers(ctx context.Context, q m.CollectQuery, opts ...QueryOption) (m.MultiIDResult, error) {
	if len(q.Identifiers) == 0 {
		return m.MultiIDResult{
			ByID:    map[string]m.IdentifierValues{},
			Found:   []string{},
			Missing: []string{},
			Stats:   m.ScanStats{ArrayOffset: -1},
		}, nil
	}

	if q.IDField == "" {
		return m.MultiIDResult{}, fmt.Errorf("%w: empty identifier field", m.ErrInvalidQuery)
	}

	values, err := jsonpath.Parse(q.ValuesPath)
	if err != nil {
		return m.MultiIDResult{}, fmt.Errorf("%w: values path %q: %w", m.ErrInvalidQuery, q.ValuesPath, err)
	}

	collector := NewIdentifierCollector(q.IDField, values, q.Identifiers)

	run := e.newRun("collect", target{document: q.Document, arrayKey: q.ArrayKey, skip: q.SkipArrays}, opts,
		"id_field", q.IDField, "identifiers", collector.Remaining())

	outcome, err := run.execute(ctx, collector, false)
	if err != nil {
		return m.MultiIDResult{Stats: outcome.stats}, err
	}

	byID, found, missing := collector.Result()

	run.finish("done", "found", len(found), "missing", len(missing))

	return m.MultiIDResult{
		ByID:         byID,
		Found:        found,
		Missing:      missing,
		ArrayPresent: outcome.present,
		Stats:        outcome.stats,
	}, nil
}

func (e *queryEngine) ListFieldValues(
	ctx context.Context,
	q m.ListQuery,
	sink func(m.IndexEntry) error,
	opts ...QueryOption,
) (m.ScanStats, error) {
	if q.Field == "" {
		return m.ScanStats{}, fmt.Errorf("%w: empty field", m.ErrInvalidQuery)
	}

	run := e.newRun("index", target{document: q.Document, arrayKey: q.ArrayKey, skip: q.SkipArrays}, opts,
		"field", q.Field, "limit", q.Limit)

	lister := NewFieldLister(q.Field, q.Limit, run.position, sink)

	outcome, err := run.execute(ctx, lister, false)
	if err != nil {
		return outcome.stats, err
	}

	run.finish("done", "listed", lister.listed)

	return outcome.stats, nil
}

type target struct {
	document m.Path
	arrayKey string
	skip     []string
}

// queryRun carries the state of one query over one or two document passes.
type queryRun struct {
	engine    *queryEngine
	target    target
	config    queryConfig
	logger    *slog.Logger
	started   time.Time
	scanner   *jsonscan.Scanner
	evaluator *ElementEvaluator
}

type runOutcome struct {
	present bool
	matched []byte
	stats   m.ScanStats
}

func (e *queryEngine) newRun(kind string, t target, opts []QueryOption, attrs ...any) *queryRun {
	var config queryConfig
	for _, opt := range opts {
		opt(&config)
	}

	logger := slog.Default().With("query_id", uuid.NewString(), "query", kind, "path", t.document, "array", t.arrayKey)
	logger.Info("query started", attrs...)

	return &queryRun{
		engine:    e,
		target:    t,
		config:    config,
		logger:    logger,
		started:   time.Now(),
		evaluator: NewElementEvaluator(logger),
	}
}

func (r *queryRun) position() int64 {
	return r.scanner.Offset()
}

func (r *queryRun) finish(status string, attrs ...any) {
	r.logger.Info("query finished", append([]any{"status", status, "elapsed", time.Since(r.started)}, attrs...)...)
}

// execute opens the document, positions a scanner on the target array and
// feeds its elements to predicate. With keepMatch the element that ended the
// scan is copied into the outcome.
func (r *queryRun) execute(ctx context.Context, predicate Predicate, keepMatch bool) (outcome runOutcome, err error) {
	outcome.stats.ArrayOffset = -1

	if r.target.arrayKey == "" {
		return outcome, fmt.Errorf("%w: empty array key", m.ErrInvalidQuery)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, r.classify(ctx, ctxErr)
	}

	var read int64

	defer func() {
		outcome.stats.BytesRead += read
		outcome.stats.ElementsScanned = r.evaluator.Scanned
		outcome.stats.CorruptElements = r.evaluator.Corrupt
		outcome.stats.Duration = time.Since(r.started)
	}()

	doc, at, err := r.open(ctx, &outcome.stats, r.target.skip)
	if doc != nil {
		defer func() {
			read = doc.BytesRead()
			_ = doc.Close()
		}()
	}

	if errors.Is(err, jsonscan.ErrTokenNotFound) {
		r.logger.Info("array not present")
		return outcome, nil
	}

	if err != nil {
		return outcome, r.classify(ctx, err)
	}

	outcome.present = true
	outcome.stats.ArrayOffset = at

	err = r.scanner.Elements(ctx, func(element []byte) (jsonscan.Decision, error) {
		result, evalErr := r.evaluator.Evaluate(element, predicate)
		if errors.Is(evalErr, m.ErrElementParse) {
			return jsonscan.Continue, nil
		}

		if evalErr != nil {
			return jsonscan.Stop, evalErr
		}

		if result != OutcomeFound {
			return jsonscan.Continue, nil
		}

		if keepMatch {
			outcome.matched = bytes.Clone(element)
		}

		r.logger.Debug("scan stopped early", "ordinal", r.evaluator.Scanned, "offset", r.scanner.Offset())

		return jsonscan.Stop, nil
	})
	if err != nil {
		return outcome, r.classify(ctx, err)
	}

	return outcome, nil
}

// open opens the document, jumps over the skip arrays, locates the target
// key and opens its array. When a skip array is missing the document is
// reopened and searched from the start without skipping.
func (r *queryRun) open(ctx context.Context, stats *m.ScanStats, skip []string) (adapter.Document, int64, error) {
	doc, err := r.engine.source.Open(ctx, r.target.document)
	if err != nil {
		return nil, 0, err
	}

	stats.DocumentSize = doc.Size()

	opts := []jsonscan.Option{jsonscan.WithChunkSize(r.engine.chunkSize)}
	if progress := r.config.progress; progress != nil {
		total := doc.Size()
		opts = append(opts, jsonscan.WithProgress(func(offset int64) { progress(offset, total) }))
	}

	r.scanner = jsonscan.NewScanner(doc, opts...)

	for _, key := range skip {
		_, err := r.scanner.Locate(ctx, keyToken(key))
		if err == nil {
			var closed int64

			closed, err = r.scanner.SkipArray(ctx)
			if err == nil {
				r.logger.Debug("skipped array", "key", key, "closed_at", closed)
				continue
			}
		}

		if !errors.Is(err, jsonscan.ErrTokenNotFound) && !errors.Is(err, jsonscan.ErrNotArray) {
			return doc, 0, err
		}

		r.logger.Warn("skip array not usable, rescanning from the start", "key", key, "error", err)

		stats.BytesRead += doc.BytesRead()
		_ = doc.Close()

		return r.open(ctx, stats, nil)
	}

	at, err := r.locateArray(ctx)

	return doc, at, err
}

// locateArray finds the target key and opens its array. A match that is not
// followed by an array, such as the key text used as a string value, is passed
// over and the search resumes after it. The first such failure is returned
// when no later match opens an array.
func (r *queryRun) locateArray(ctx context.Context) (int64, error) {
	token := keyToken(r.target.arrayKey)

	var firstErr error

	for {
		at, err := r.scanner.Locate(ctx, token)
		if err != nil {
			if firstErr != nil && errors.Is(err, jsonscan.ErrTokenNotFound) {
				return 0, firstErr
			}

			return 0, err
		}

		if _, err = r.scanner.SeekArrayOpen(ctx); !errors.Is(err, jsonscan.ErrNotArray) {
			return at, err
		}

		r.logger.Debug("key match not followed by an array, searching on", "offset", at, "error", err)

		if firstErr == nil {
			firstErr = err
		}
	}
}

// classify maps scanner and source failures onto the model error taxonomy.
// Errors that are neither pass through unchanged.
func (r *queryRun) classify(ctx context.Context, err error) error {
	var mapped error

	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		mapped = fmt.Errorf("%w: %w", m.ErrCancelled, err)
	case errors.Is(err, jsonscan.ErrTruncated),
		errors.Is(err, jsonscan.ErrNotArray),
		errors.Is(err, jsonscan.ErrUnbalanced):
		mapped = fmt.Errorf("%w: %w", m.ErrStructuralTruncation, err)
	case errors.Is(err, jsonscan.ErrRead):
		mapped = fmt.Errorf("%w: %w", m.ErrStreamIO, err)
	default:
		mapped = err
	}

	r.logger.Error("query failed", "error", mapped, "elapsed", time.Since(r.started))

	return mapped
}

// keyToken renders key as the quoted JSON string searched for in documents.
func keyToken(key string) []byte {
	var buf strings.Builder

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(key)

	return []byte(strings.TrimSuffix(buf.String(), "\n"))
}
