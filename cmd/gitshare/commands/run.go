package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitshare/pkg/attribution"
	"github.com/Sumatoshi-tech/gitshare/pkg/cache"
	"github.com/Sumatoshi-tech/gitshare/pkg/config"
	"github.com/Sumatoshi-tech/gitshare/pkg/observability"
	"github.com/Sumatoshi-tech/gitshare/pkg/ownership"
	"github.com/Sumatoshi-tech/gitshare/pkg/report"
	"github.com/Sumatoshi-tech/gitshare/pkg/version"
)

// RunCommand holds the flags of the run command.
type RunCommand struct {
	configPath string
	verbosity  int
	noColor    bool

	emails      []string
	ignoreUsers []string
	maxAge      string
	overwritten bool
	workers     int

	dir        string
	skipVendor bool
	languages  []string
	whitelist  string
	peopleDict string

	format      string
	flat        bool
	showAuthors bool
	maxAuthors  int
	reverse     bool
	all         bool
	maxDepth    int
	noProgress  bool

	cache    bool
	cacheDir string

	now func() time.Time
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommand("run [path]")
}

func newRunCommand(use string) *cobra.Command {
	rc := &RunCommand{now: time.Now}

	cmd := &cobra.Command{
		Use:   use,
		Short: "Attribute lines to authors and print a report",
		Long: `Attribute every line of the HEAD snapshot to an author and report the share
of the target authors (--email, default: the repository user.email) per file
and directory.

By default each line is credited to the author of its current version, as
git blame does. With --overwritten every author who ever wrote a line is
credited, following renames, so overwritten work still counts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	flags := cmd.Flags()

	flags.StringVar(&rc.configPath, "config", "", "Config file (default: .gitshare.yaml in the current or home directory)")
	flags.CountVarP(&rc.verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	flags.BoolVar(&rc.noColor, "no-color", false, "Disable colored output")

	flags.StringArrayVar(&rc.emails, "email", nil, "Target author email (repeatable; default: git config user.email)")
	flags.StringArrayVar(&rc.ignoreUsers, "ignore-user", nil, "Author email removed before computing shares (repeatable)")
	flags.StringVar(&rc.maxAge, "max-age", "", "Ignore lines older than this (e.g. 6M, 90d, 2w, 1y, 36h)")
	flags.BoolVar(&rc.overwritten, "overwritten", false, "Credit every author who ever wrote a line, not only the current one")
	flags.IntVar(&rc.workers, "workers", 0, "Number of parallel repository handles (0 = use CPU count)")

	flags.StringVarP(&rc.dir, "dir", "d", "", "Only attribute files under this directory")
	flags.BoolVar(&rc.skipVendor, "skip-vendor", false, "Skip vendored files and lock files")
	flags.StringSliceVar(&rc.languages, "languages", nil, "Only attribute files of these languages (e.g. go,python)")
	flags.StringVar(&rc.whitelist, "whitelist", "", "Only attribute paths matching this regular expression")
	flags.StringVar(&rc.peopleDict, "people-dict", "", "File of author aliases: one developer per line, aliases separated by '|'")

	flags.StringVar(&rc.format, "format", config.DefaultFormat, "Output format: text, table, json, yaml, plot")
	flags.BoolVar(&rc.flat, "flat", false, "List files instead of a directory tree")
	flags.BoolVar(&rc.showAuthors, "show-authors", false, "Show the top authors of each entry instead of the target share")
	flags.IntVar(&rc.maxAuthors, "max-authors", config.DefaultMaxAuthors, "Number of authors shown with --show-authors")
	flags.BoolVar(&rc.reverse, "reverse", false, "Sort by ascending share")
	flags.BoolVar(&rc.all, "all", false, "Include files and directories the targets never touched")
	flags.IntVar(&rc.maxDepth, "max-depth", config.DefaultMaxDepth, "Maximum tree depth (-1 = unlimited)")
	flags.BoolVar(&rc.noProgress, "no-progress", false, "Disable the progress bar")

	flags.BoolVar(&rc.cache, "cache", false, "Cache per-commit changes between --overwritten runs")
	flags.StringVar(&rc.cacheDir, "cache-dir", "", "Cache directory (default: user cache dir)")

	for _, flag := range []string{"show-authors", "max-authors"} {
		cmd.MarkFlagsMutuallyExclusive(flag, "email")
		cmd.MarkFlagsMutuallyExclusive(flag, "all")
		cmd.MarkFlagsMutuallyExclusive(flag, "reverse")
	}

	cmd.MarkFlagsMutuallyExclusive("flat", "max-depth")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	rc.applyFlags(cmd, cfg)

	if cmd.Flags().Changed("max-authors") && !cfg.Output.ShowAuthors {
		return fmt.Errorf("validate options: %w: --max-authors requires --show-authors", config.ErrConflictingOptions)
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate options: %w", err)
	}

	providers, err := rc.initObservability(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	req, store, err := rc.request(cfg, args, providers)
	if err != nil {
		return err
	}

	sess, err := ownership.Open(req)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var out *ownership.Outcome

	if cfg.Output.NoProgress {
		out, err = sess.Run(ctx)
	} else {
		stop := trackProgress(cmd.ErrOrStderr(), progressMessage(req.Mode), sess.Progress)
		out, err = sess.Run(ctx)

		stop()
	}

	if err != nil {
		return err
	}

	if store != nil {
		hits, misses := store.Stats()
		providers.Logger.Info("delta cache", "dir", store.Dir(), "hits", hits, "misses", misses)
	}

	providers.Logger.Info("report",
		"files", len(out.Files),
		"lines", humanize.Comma(int64(out.Files.Total().Total())),
		"skipped", out.Stats.FilesSkipped+out.Stats.CommitsSkipped)

	return rc.render(cmd.OutOrStdout(), cfg, sess, out)
}

// applyFlags overrides config values with explicitly set flags.
func (rc *RunCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("email") {
		cfg.Attribution.Emails = rc.emails
	}

	if changed("ignore-user") {
		cfg.Attribution.IgnoreUsers = rc.ignoreUsers
	}

	if changed("max-age") {
		cfg.Attribution.MaxAge = rc.maxAge
	}

	if changed("overwritten") {
		cfg.Attribution.Overwritten = rc.overwritten
	}

	if changed("workers") {
		cfg.Attribution.Workers = rc.workers
	}

	rc.applyScopeFlags(changed, cfg)
	rc.applyOutputFlags(changed, cfg)

	if changed("cache") {
		cfg.Cache.Enabled = rc.cache
	}

	if changed("cache-dir") {
		cfg.Cache.Dir = rc.cacheDir
	}
}

func (rc *RunCommand) applyScopeFlags(changed func(string) bool, cfg *config.Config) {
	if changed("dir") {
		cfg.Scope.Dir = rc.dir
	}

	if changed("skip-vendor") {
		cfg.Scope.SkipVendor = rc.skipVendor
	}

	if changed("languages") {
		cfg.Scope.Languages = rc.languages
	}

	if changed("whitelist") {
		cfg.Scope.Whitelist = rc.whitelist
	}

	if changed("people-dict") {
		cfg.Scope.PeopleDict = rc.peopleDict
	}
}

func (rc *RunCommand) applyOutputFlags(changed func(string) bool, cfg *config.Config) {
	if changed("format") {
		cfg.Output.Format = rc.format
	}

	if changed("flat") {
		cfg.Output.Flat = rc.flat
	}

	if changed("show-authors") {
		cfg.Output.ShowAuthors = rc.showAuthors
	}

	if changed("max-authors") {
		cfg.Output.MaxAuthors = rc.maxAuthors
	}

	if changed("reverse") {
		cfg.Output.Reverse = rc.reverse
	}

	if changed("all") {
		cfg.Output.All = rc.all
	}

	if changed("max-depth") {
		cfg.Output.MaxDepth = rc.maxDepth
	}

	if changed("no-progress") {
		cfg.Output.NoProgress = rc.noProgress
	}
}

func (rc *RunCommand) initObservability(cfg *config.Config, logOut io.Writer) (observability.Providers, error) {
	ocfg := observability.DefaultConfig()
	ocfg.ServiceVersion = version.Version
	ocfg.LogJSON = cfg.Logging.JSON

	if rc.verbosity > 0 {
		ocfg.LogLevel = observability.LevelFromVerbosity(rc.verbosity)
	} else {
		level, err := cfg.SlogLevel()
		if err != nil {
			return observability.Providers{}, err
		}

		ocfg.LogLevel = level
	}

	return observability.InitWithReaders(ocfg, logOut)
}

// request turns the resolved configuration into an ownership request.
func (rc *RunCommand) request(
	cfg *config.Config,
	args []string,
	providers observability.Providers,
) (ownership.Request, *cache.Store, error) {
	maxAge, err := cfg.MaxAgeDuration()
	if err != nil {
		return ownership.Request{}, nil, err
	}

	metrics, err := observability.NewAttributionMetrics(providers.Meter)
	if err != nil {
		return ownership.Request{}, nil, err
	}

	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}

	mode := attribution.ModeDirect
	if cfg.Attribution.Overwritten {
		mode = attribution.ModeOverwritten
	}

	req := ownership.Request{
		RepoPath:    repoPath,
		Mode:        mode,
		Targets:     cfg.Attribution.Emails,
		ShowAuthors: cfg.Output.ShowAuthors,
		IgnoreUsers: cfg.Attribution.IgnoreUsers,
		MaxAge:      maxAge,
		Now:         rc.now(),
		Workers:     cfg.Attribution.Workers,
		PeopleDict:  cfg.Scope.PeopleDict,
		Logger:      providers.Logger,
		Metrics:     metrics,
		Tracer:      providers.Tracer,
	}

	req.Scope.SkipVendor = cfg.Scope.SkipVendor
	req.Scope.BlacklistedPrefixes = cfg.Scope.BlacklistedPrefixes
	req.Scope.Languages = cfg.Scope.Languages
	req.Scope.Whitelist = cfg.Scope.Whitelist

	// --dir is relative to the current directory, not to the repository root.
	if cfg.Scope.Dir != "" {
		req.Scope.Dir, err = filepath.Abs(cfg.Scope.Dir)
		if err != nil {
			return ownership.Request{}, nil, fmt.Errorf("resolve --dir: %w", err)
		}
	}

	if !cfg.Cache.Enabled {
		return req, nil, nil
	}

	store, err := openCache(cfg.Cache.Dir)
	if err != nil {
		return ownership.Request{}, nil, err
	}

	req.Cache = store

	return req, store, nil
}

func openCache(dir string) (*cache.Store, error) {
	if dir == "" {
		defaultDir, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}

		dir = defaultDir
	}

	return cache.Open(dir)
}

func (rc *RunCommand) render(w io.Writer, cfg *config.Config, sess *ownership.Session, out *ownership.Outcome) error {
	format, err := cfg.OutputFormat()
	if err != nil {
		return err
	}

	opts := report.Options{
		Targets:     out.Targets,
		ShowAuthors: cfg.Output.ShowAuthors,
		Flat:        cfg.Output.Flat,
		Reverse:     cfg.Output.Reverse,
		All:         cfg.Output.All,
		MaxAuthors:  cfg.Output.MaxAuthors,
		MaxDepth:    cfg.Output.MaxDepth,
		Color:       !rc.noColor && !color.NoColor,
	}

	err = report.Write(w, format, out.Files, opts, sess.Meta(out, rc.now()))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func progressMessage(mode attribution.Mode) string {
	if mode == attribution.ModeOverwritten {
		return "Walking history"
	}

	return "Blaming files"
}
