package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"jumpscan.dev/pkg/jumpscan/internal/adapter"
	"jumpscan.dev/pkg/jumpscan/internal/controller"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
	"jumpscan.dev/pkg/jumpscan/pkg"
)

// FindArgs contains the arguments for looking up elements by field value.
type FindArgs struct {
	Document    m.Path
	ArrayKey    string
	Field       string
	Values      []string
	DerivedPath string
	SkipArrays  []string
	// Parallel bounds how many values are searched at the same time.
	Parallel int
	UseCache bool
}

// FirstArgs contains the arguments for fetching the first element of an array.
type FirstArgs struct {
	Document    m.Path
	ArrayKey    string
	DerivedPath string
	SkipArrays  []string
	UseCache    bool
}

// CollectArgs contains the arguments for collecting values per identifier.
type CollectArgs struct {
	Document    m.Path
	ArrayKey    string
	IDField     string
	ValuesPath  string
	Identifiers []string
	SkipArrays  []string
	UseCache    bool
}

// IndexArgs contains the arguments for listing one field of every element.
type IndexArgs struct {
	Document   m.Path
	ArrayKey   string
	Field      string
	SkipArrays []string
	Limit      int
	// SpillDir holds the temporary listing. Empty uses the system temp dir.
	SpillDir m.Path
}

// DecompressArgs contains the arguments for expanding a compressed document.
type DecompressArgs struct {
	Source m.Path
	// Destination defaults to Source without its compression extension.
	Destination m.Path
}

// MetaArgs contains the arguments for describing documents.
type MetaArgs struct {
	Documents []m.Path
}

// Workflow runs the CLI use cases on top of the query engine.
type Workflow interface {
	Find(ctx context.Context, args FindArgs) error
	First(ctx context.Context, args FirstArgs) error
	Collect(ctx context.Context, args CollectArgs) error
	Index(ctx context.Context, args IndexArgs) error
	Decompress(ctx context.Context, args DecompressArgs) error
	Meta(ctx context.Context, args MetaArgs) error
}

type workflow struct {
	adapter.DocumentSource
	adapter.ResultStore
	controller.UI
	QueryEngine
	decompressor adapter.Decompressor
}

// NewWorkflow creates a new Workflow. store may be nil to disable result caching.
func NewWorkflow(
	source adapter.DocumentSource,
	store adapter.ResultStore,
	ui controller.UI,
	engine QueryEngine,
	decompressor adapter.Decompressor,
) Workflow {
	return &workflow{
		DocumentSource: source,
		ResultStore:    store,
		UI:             ui,
		QueryEngine:    engine,
		decompressor:   decompressor,
	}
}

func (w *workflow) Find(ctx context.Context, args FindArgs) error {
	info, err := w.document(args.Document)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithTask("find "+args.Field)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	results := make([]m.MatchResult, len(args.Values))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(args.Parallel, 1))

	for i, value := range args.Values {
		group.Go(func() error {
			q := m.FieldQuery{
				ArrayQuery: m.ArrayQuery{
					Document:    args.Document,
					ArrayKey:    args.ArrayKey,
					SkipArrays:  args.SkipArrays,
					DerivedPath: args.DerivedPath,
				},
				Field: args.Field,
				Value: value,
			}
			key := adapter.CacheKey(info, "find",
				q.ArrayKey, q.Field, q.Value, q.DerivedPath, strings.Join(q.SkipArrays, ","))

			result, err := w.cachedMatch(args.UseCache, key, func() (m.MatchResult, error) {
				return w.FindElementByField(groupCtx, q, w.progress(groupCtx, value))
			})
			if err != nil {
				return fmt.Errorf("find %s=%q: %w", args.Field, value, err)
			}

			results[i] = result

			return nil
		})
	}

	err = group.Wait()
	w.Close(ctx)

	if err != nil {
		return err
	}

	return w.DisplayMatches(ctx, results)
}

func (w *workflow) First(ctx context.Context, args FirstArgs) error {
	info, err := w.document(args.Document)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithTask("first "+args.ArrayKey)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	q := m.ArrayQuery{
		Document:    args.Document,
		ArrayKey:    args.ArrayKey,
		SkipArrays:  args.SkipArrays,
		DerivedPath: args.DerivedPath,
	}
	key := adapter.CacheKey(info, "first", q.ArrayKey, q.DerivedPath, strings.Join(q.SkipArrays, ","))

	result, err := w.cachedMatch(args.UseCache, key, func() (m.MatchResult, error) {
		return w.FindFirstElement(ctx, q, w.progress(ctx, args.ArrayKey))
	})
	w.Close(ctx)

	if err != nil {
		return fmt.Errorf("first element of %q: %w", args.ArrayKey, err)
	}

	return w.DisplayMatches(ctx, []m.MatchResult{result})
}

func (w *workflow) Collect(ctx context.Context, args CollectArgs) error {
	info, err := w.document(args.Document)
	if err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithTask("collect "+args.IDField)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	q := m.CollectQuery{
		Document:    args.Document,
		ArrayKey:    args.ArrayKey,
		SkipArrays:  args.SkipArrays,
		IDField:     args.IDField,
		ValuesPath:  args.ValuesPath,
		Identifiers: args.Identifiers,
	}
	parts := append([]string{q.ArrayKey, q.IDField, q.ValuesPath, strings.Join(q.SkipArrays, ",")}, q.Identifiers...)
	key := adapter.CacheKey(info, "collect", parts...)

	result, err := w.cachedCollection(args.UseCache, key, func() (m.MultiIDResult, error) {
		return w.CollectByIdentifiers(ctx, q, w.progress(ctx, args.ArrayKey))
	})
	w.Close(ctx)

	if err != nil {
		return fmt.Errorf("collect %s: %w", args.IDField, err)
	}

	return w.DisplayCollection(ctx, result)
}

func (w *workflow) Index(ctx context.Context, args IndexArgs) error {
	if _, err := w.document(args.Document); err != nil {
		return err
	}

	spill, err := pkg.NewSpill[m.IndexEntry](string(args.SpillDir))
	if err != nil {
		return fmt.Errorf("create index spill: %w", err)
	}

	defer func() {
		if err := spill.Close(); err != nil {
			slog.Warn("failed to remove index spill", "path", spill.Path(), "error", err)
		}
	}()

	if err := w.Start(ctx, controller.WithTask("index "+args.Field)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}

	q := m.ListQuery{
		ArrayQuery: m.ArrayQuery{
			Document:   args.Document,
			ArrayKey:   args.ArrayKey,
			SkipArrays: args.SkipArrays,
		},
		Field: args.Field,
		Limit: args.Limit,
	}

	stats, err := w.ListFieldValues(ctx, q, spill.Append, w.progress(ctx, args.ArrayKey))
	w.Close(ctx)

	if err != nil {
		return fmt.Errorf("index %s.%s: %w", args.ArrayKey, args.Field, err)
	}

	slog.Debug("index spilled", "path", spill.Path(), "entries", spill.Len())

	return w.DisplayIndex(ctx, spill.All(), stats)
}

func (w *workflow) Decompress(ctx context.Context, args DecompressArgs) error {
	dst := args.Destination
	if dst == "" {
		dst = adapter.DecompressedPath(args.Source)
	}

	written, err := w.decompressor.Decompress(ctx, args.Source, dst)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", args.Source, err)
	}

	return w.DisplayDecompression(ctx, args.Source, dst, written)
}

func (w *workflow) Meta(ctx context.Context, args MetaArgs) error {
	for _, path := range args.Documents {
		info, err := w.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if err := w.DisplayDocument(ctx, info); err != nil {
			return err
		}
	}

	return nil
}

// document stats path and fails when it does not exist.
func (w *workflow) document(path m.Path) (m.DocumentInfo, error) {
	info, err := w.Stat(path)
	if err != nil {
		return m.DocumentInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.Exists {
		return m.DocumentInfo{}, fmt.Errorf("%w: %s does not exist", m.ErrSourceUnavailable, path)
	}

	return info, nil
}

func (w *workflow) progress(ctx context.Context, task string) QueryOption {
	return WithProgress(func(read, total int64) {
		w.DisplayProgress(ctx, task, read, total)
	})
}

func (w *workflow) cachedMatch(useCache bool, key string, run func() (m.MatchResult, error)) (m.MatchResult, error) {
	if w.ResultStore == nil {
		return run()
	}

	return throughCache(useCache, key, w.LoadMatch, w.SaveMatch, run)
}

func (w *workflow) cachedCollection(useCache bool, key string, run func() (m.MultiIDResult, error)) (m.MultiIDResult, error) {
	if w.ResultStore == nil {
		return run()
	}

	return throughCache(useCache, key, w.LoadCollection, w.SaveCollection, run)
}

// throughCache serves a stored result when useCache is set and always stores
// fresh results. Cache failures only log.
func throughCache[T any](
	useCache bool,
	key string,
	load func(string) (T, bool, error),
	save func(string, T) error,
	run func() (T, error),
) (T, error) {
	if useCache {
		cached, ok, err := load(key)
		switch {
		case err != nil:
			slog.Warn("failed to load cached result", "key", key, "error", err)
		case ok:
			slog.Debug("serving cached result", "key", key)
			return cached, nil
		}
	}

	result, err := run()
	if err != nil {
		return result, err
	}

	if err := save(key, result); err != nil {
		slog.Warn("failed to cache result", "key", key, "error", err)
	}

	return result, nil
}
