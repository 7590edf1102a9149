package attribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/gitshare/pkg/cache"
	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitshare/pkg/identity"
	"github.com/Sumatoshi-tech/gitshare/pkg/observability"
)

// Mode selects how lines are attributed.
type Mode string

const (
	// ModeDirect credits the author of the current version of each line.
	ModeDirect Mode = "direct"
	// ModeOverwritten credits every author who ever added or changed a line,
	// following renames.
	ModeOverwritten Mode = "overwritten"
)

const (
	spanDirect      = "attribution.direct"
	spanOverwritten = "attribution.overwritten"
	spanReduce      = "attribution.reduce"
)

// Sentinel errors for engine level failures.
var (
	// ErrUnknownMode is returned for a mode other than direct or overwritten.
	ErrUnknownMode = errors.New("unknown attribution mode")
	// ErrRepositoryOpen is returned when the repository cannot be opened.
	ErrRepositoryOpen = errors.New("cannot open repository")
	// ErrNoHead is returned when HEAD cannot be resolved.
	ErrNoHead = errors.New("cannot resolve HEAD")
)

// Cache stores values by key. *cache.Store implements it; Load must return
// an error wrapping cache.ErrCacheMiss for absent keys.
type Cache interface {
	Load(key string, v any) error
	Save(key string, v any) error
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Paths restricts the result to these HEAD paths. Empty means every file
	// in the HEAD snapshot.
	Paths []string
	// MaxAge drops contributions older than this. Zero keeps everything.
	MaxAge time.Duration
	// Now is the reference time for MaxAge. Defaults to time.Now.
	Now time.Time
	// Workers is the number of repository handles used in parallel.
	// Defaults to the number of CPUs.
	Workers int
	// Resolver maps signatures to identities. Nil uses emails only.
	Resolver *identity.Resolver
	// Cache holds per-commit deltas between runs. Nil disables caching.
	Cache   Cache
	Logger  *slog.Logger
	Metrics *observability.AttributionMetrics
	Tracer  trace.Tracer
}

// Result is the outcome of one run.
type Result struct {
	Files contrib.Files
	Stats observability.AttributionStats
}

// Engine attributes the lines of a repository's HEAD snapshot to authors.
type Engine struct {
	path string
	opts Options
	pool *gitlib.HandlePool

	done  atomic.Int64
	total atomic.Int64
}

// NewEngine creates an engine over the repository at path.
func NewEngine(path string, opts Options) (*Engine, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	if opts.Logger == nil {
		opts.Logger = observability.DiscardLogger()
	}

	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	pool, err := gitlib.NewHandlePool(path, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &Engine{path: path, opts: opts, pool: pool}, nil
}

// Progress returns the number of finished work items of the current run and
// the total. It is safe to call from any goroutine.
func (e *Engine) Progress() (done, total int64) {
	return e.done.Load(), e.total.Load()
}

// Run attributes every path of interest in the given mode.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Result, error) {
	start := time.Now()
	now := e.opts.Now

	if now.IsZero() {
		now = start
	}

	paths, err := e.paths()
	if err != nil {
		return nil, err
	}

	e.done.Store(0)
	e.total.Store(0)

	var res *Result

	switch mode {
	case ModeDirect:
		res, err = e.direct(ctx, paths, now)
	case ModeOverwritten:
		res, err = e.overwritten(ctx, paths, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if err != nil {
		return nil, err
	}

	res.Stats.Mode = string(mode)
	res.Stats.Duration = time.Since(start)
	res.Stats.Lines = int64(res.Files.Total().Total())

	e.opts.Metrics.RecordRun(ctx, res.Stats)
	e.opts.Logger.InfoContext(ctx, "attribution finished",
		"mode", mode,
		"files", len(res.Files),
		"lines", humanize.Comma(res.Stats.Lines),
		"duration", res.Stats.Duration.Round(time.Millisecond))

	return res, nil
}

func (e *Engine) paths() ([]string, error) {
	if len(e.opts.Paths) > 0 {
		return e.opts.Paths, nil
	}

	repo, err := gitlib.OpenRepository(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryOpen, err)
	}
	defer repo.Free()

	files, err := repo.HeadFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHead, err)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	return paths, nil
}

type blameResult struct {
	record *contrib.Record
	stats  BlameStats
}

func (e *Engine) direct(ctx context.Context, paths []string, now time.Time) (*Result, error) {
	ctx, span := e.opts.Tracer.Start(ctx, spanDirect,
		trace.WithAttributes(attribute.Int("paths", len(paths))))
	defer span.End()

	e.total.Store(int64(len(paths)))

	results := make([]*blameResult, len(paths))

	err := e.pool.Run(ctx, len(paths), func(ctx context.Context, repo *gitlib.Repository, job int) error {
		defer e.done.Add(1)

		path := paths[job]

		rec, stats, blameErr := BlameFile(repo, path, e.opts.Resolver, e.opts.MaxAge, now, e.opts.Logger)
		if blameErr != nil {
			e.opts.Logger.WarnContext(ctx, "skip path", "path", path, "error", blameErr)

			return ctx.Err()
		}

		results[job] = &blameResult{record: rec, stats: stats}

		return ctx.Err()
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("blame files: %w", err)
	}

	res := &Result{Files: contrib.Files{}}

	for i, r := range results {
		if r == nil {
			res.Stats.FilesSkipped++

			continue
		}

		res.Files[paths[i]] = r.record
		res.Stats.Files++
		res.Stats.NoIdentityHunks += int64(r.stats.MissingIdentity)
	}

	span.SetAttributes(
		attribute.Int64("files.blamed", res.Stats.Files),
		attribute.Int64("files.skipped", res.Stats.FilesSkipped),
	)

	return res, nil
}

type commitResult struct {
	partial    *Partial
	cached     bool
	noIdentity bool
}

func (e *Engine) overwritten(ctx context.Context, paths []string, now time.Time) (*Result, error) {
	ctx, span := e.opts.Tracer.Start(ctx, spanOverwritten)
	defer span.End()

	refs, err := e.history()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	res := &Result{Files: contrib.Files{}}

	commits := make([]gitlib.CommitRef, 0, len(refs))

	for _, ref := range refs {
		switch {
		case ref.IsMerge():
			res.Stats.CommitsSkipped++
		case Expired(ref.When, now, e.opts.MaxAge):
			res.Stats.CommitsExpired++
		default:
			commits = append(commits, ref)
		}
	}

	span.SetAttributes(attribute.Int("commits", len(commits)))
	e.total.Store(int64(len(commits)))

	results := make([]*commitResult, len(commits))

	err = e.pool.Run(ctx, len(commits), func(ctx context.Context, repo *gitlib.Repository, job int) error {
		defer e.done.Add(1)

		hash := commits[job].Hash

		delta, cached, deltaErr := e.commitDelta(repo, hash)
		if deltaErr != nil {
			e.opts.Logger.WarnContext(ctx, "skip commit", "commit", hash.Short(), "error", deltaErr)

			return ctx.Err()
		}

		partial, ok := delta.Partial(e.opts.Resolver, repo)
		if !ok {
			e.opts.Logger.WarnContext(ctx, "commit without email", "commit", hash.Short())
		}

		results[job] = &commitResult{partial: partial, cached: cached, noIdentity: !ok}

		return ctx.Err()
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("diff commits: %w", err)
	}

	partials := make([]*Partial, 0, len(results))

	for _, r := range results {
		if r == nil {
			res.Stats.CommitsSkipped++

			continue
		}

		res.Stats.Commits++

		if r.noIdentity {
			res.Stats.NoIdentityCommits++
		}

		if e.opts.Cache != nil {
			if r.cached {
				res.Stats.CacheHits++
			} else {
				res.Stats.CacheMisses++
			}
		}

		partials = append(partials, r.partial)
	}

	merged := e.reduce(ctx, partials)

	interest := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		interest[p] = struct{}{}
	}

	merged.Retain(func(path string) bool {
		_, ok := interest[path]

		return ok
	})

	res.Files = merged.Files
	res.Stats.Files = int64(len(res.Files))

	return res, nil
}

func (e *Engine) history() ([]gitlib.CommitRef, error) {
	repo, err := gitlib.OpenRepository(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryOpen, err)
	}
	defer repo.Free()

	refs, err := repo.History()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoHead, err)
	}

	return refs, nil
}

func (e *Engine) reduce(ctx context.Context, partials []*Partial) *Partial {
	_, span := e.opts.Tracer.Start(ctx, spanReduce,
		trace.WithAttributes(attribute.Int("partials", len(partials))))
	defer span.End()

	return Reduce(partials, e.opts.Workers)
}

// commitDelta loads the delta of a commit from the cache or computes it.
// Cache failures other than a miss are logged and the delta is recomputed.
func (e *Engine) commitDelta(repo *gitlib.Repository, hash gitlib.Hash) (delta *CommitDelta, cached bool, err error) {
	key := hash.String()

	if e.opts.Cache != nil {
		var stored CommitDelta

		loadErr := e.opts.Cache.Load(key, &stored)
		if loadErr == nil {
			return &stored, true, nil
		}

		if !errors.Is(loadErr, cache.ErrCacheMiss) {
			e.opts.Logger.Warn("read cached delta", "commit", hash.Short(), "error", loadErr)
		}
	}

	delta, err = DiffCommit(repo, hash)
	if err != nil {
		return nil, false, err
	}

	if e.opts.Cache != nil {
		saveErr := e.opts.Cache.Save(key, delta)
		if saveErr != nil {
			e.opts.Logger.Warn("write cached delta", "commit", hash.Short(), "error", saveErr)
		}
	}

	return delta, false, nil
}
