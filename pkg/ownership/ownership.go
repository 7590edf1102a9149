// Package ownership ties repository discovery, scope selection, target
// identities and the attribution engine into one run. It is shared by the
// command line and the MCP server.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gitshare/pkg/attribution"
	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitshare/pkg/identity"
	"github.com/Sumatoshi-tech/gitshare/pkg/observability"
	"github.com/Sumatoshi-tech/gitshare/pkg/report"
	"github.com/Sumatoshi-tech/gitshare/pkg/scope"
)

// ErrNoIdentity is returned when no target is given and the repository has
// no user.email configured.
var ErrNoIdentity = errors.New("no target identity: pass --email or set user.email")

// Request describes one ownership run.
type Request struct {
	// RepoPath is any path inside the repository.
	RepoPath string
	// Mode defaults to attribution.ModeDirect.
	Mode attribution.Mode
	// Targets are the identities whose share is reported. When empty and
	// ShowAuthors is false, the repository's user.email is used.
	Targets     []string
	ShowAuthors bool
	// IgnoreUsers are removed from every record after attribution.
	IgnoreUsers []string
	MaxAge      time.Duration
	Now         time.Time
	Workers     int
	// PeopleDict is an optional alias file, see identity.LoadPeopleDict.
	PeopleDict string
	// Scope selects the attributed files. An absolute Scope.Dir is taken
	// relative to the work tree; a relative one is already repository
	// relative.
	Scope   scope.Options
	Cache   attribution.Cache
	Logger  *slog.Logger
	Metrics *observability.AttributionMetrics
	Tracer  trace.Tracer
}

// Outcome is the filtered result of a run.
type Outcome struct {
	Files   contrib.Files
	Targets []string
	Ignored []string
	Stats   observability.AttributionStats
}

// Session is an opened repository ready to be attributed.
type Session struct {
	req      Request
	repo     *gitlib.Repository
	resolver *identity.Resolver
	targets  []string
	ignored  []string
	paths    []string
	engine   *attribution.Engine
}

// Open discovers the repository, resolves targets and selects paths.
// The caller must Close the session.
func Open(req Request) (*Session, error) {
	switch req.Mode {
	case "":
		req.Mode = attribution.ModeDirect
	case attribution.ModeDirect, attribution.ModeOverwritten:
	default:
		return nil, fmt.Errorf("%w: %q", attribution.ErrUnknownMode, req.Mode)
	}

	if req.Logger == nil {
		req.Logger = observability.DiscardLogger()
	}

	repo, err := gitlib.DiscoverRepository(req.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", attribution.ErrRepositoryOpen, err)
	}

	s := &Session{req: req, repo: repo}

	err = s.prepare()
	if err != nil {
		repo.Free()

		return nil, err
	}

	return s, nil
}

func (s *Session) prepare() error {
	if s.req.PeopleDict != "" {
		resolver, err := identity.LoadPeopleDict(s.req.PeopleDict)
		if err != nil {
			return err
		}

		s.resolver = resolver
	}

	err := s.resolveTargets()
	if err != nil {
		return err
	}

	s.ignored = s.canonical(s.req.IgnoreUsers)

	opts := s.req.Scope
	if filepath.IsAbs(opts.Dir) {
		opts.Dir, err = scope.RelativeDir(s.Workdir(), opts.Dir)
		if err != nil {
			return err
		}
	}

	filter, err := scope.New(opts)
	if err != nil {
		return err
	}

	s.paths, err = filter.Select(s.repo)
	if err != nil {
		return fmt.Errorf("%w: %w", attribution.ErrNoHead, err)
	}

	s.req.Logger.Debug("paths selected", "paths", len(s.paths), "dir", opts.Dir)

	if len(s.paths) == 0 {
		return nil
	}

	s.engine, err = attribution.NewEngine(s.repo.Path(), attribution.Options{
		Paths:    s.paths,
		MaxAge:   s.req.MaxAge,
		Now:      s.req.Now,
		Workers:  s.req.Workers,
		Resolver: s.resolver,
		Cache:    s.req.Cache,
		Logger:   s.req.Logger,
		Metrics:  s.req.Metrics,
		Tracer:   s.req.Tracer,
	})

	return err
}

func (s *Session) resolveTargets() error {
	if len(s.req.Targets) > 0 {
		s.targets = s.canonical(s.req.Targets)

		return nil
	}

	if s.req.ShowAuthors {
		return nil
	}

	sig, err := s.repo.DefaultSignature()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoIdentity, err)
	}

	id, ok := s.resolver.Resolve(s.repo, sig)
	if !ok {
		return ErrNoIdentity
	}

	s.targets = []string{id}

	return nil
}

// canonical maps user supplied identities through the mailmap and people dict
// so they compare equal to attributed identities.
func (s *Session) canonical(ids []string) []string {
	out := make([]string, 0, len(ids))

	for _, id := range identity.NormalizeAll(ids) {
		resolved, ok := s.resolver.Resolve(s.repo, gitlib.Signature{Email: id})
		if !ok {
			resolved = id
		}

		out = append(out, resolved)
	}

	return out
}

// Workdir returns the repository work tree.
func (s *Session) Workdir() string {
	return filepath.Clean(s.repo.Workdir())
}

// Targets returns the resolved target identities.
func (s *Session) Targets() []string {
	return s.targets
}

// Paths returns the selected paths.
func (s *Session) Paths() []string {
	return s.paths
}

// Progress reports the engine progress of the current run.
func (s *Session) Progress() (done, total int64) {
	if s.engine == nil {
		return 0, 0
	}

	return s.engine.Progress()
}

// Run attributes the selected paths, then drops ignored users and files left
// without lines.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Files: contrib.Files{}, Targets: s.targets, Ignored: s.ignored}
	out.Stats.Mode = string(s.req.Mode)

	if s.engine == nil {
		return out, nil
	}

	res, err := s.engine.Run(ctx, s.req.Mode)
	if err != nil {
		return nil, err
	}

	res.Files.FilterIgnored(s.ignored)
	res.Files.DropEmpty()

	out.Files = res.Files
	out.Stats = res.Stats

	return out, nil
}

// Meta describes the run for structured reports.
func (s *Session) Meta(out *Outcome, generatedAt time.Time) report.Meta {
	meta := report.Meta{
		Repository:  s.Workdir(),
		Mode:        string(s.req.Mode),
		Ignored:     out.Ignored,
		GeneratedAt: generatedAt,
	}

	if s.req.MaxAge > 0 {
		meta.MaxAge = s.req.MaxAge.String()
	}

	return meta
}

// Close releases the repository.
func (s *Session) Close() {
	s.repo.Free()
}
