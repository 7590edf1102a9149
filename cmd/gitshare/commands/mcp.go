package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitshare/pkg/cache"
	"github.com/Sumatoshi-tech/gitshare/pkg/mcp"
	"github.com/Sumatoshi-tech/gitshare/pkg/observability"
	"github.com/Sumatoshi-tech/gitshare/pkg/version"
)

// metricsReadHeaderTimeout bounds slow clients of the metrics endpoint.
const metricsReadHeaderTimeout = 5 * time.Second

// mcpOptions holds the flags of the mcp command.
type mcpOptions struct {
	debug       bool
	metricsAddr string
	workers     int
	cache       bool
	cacheDir    string
}

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var opts mcpOptions

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes gitshare as tools that AI agents can discover and invoke:
  - gitshare_ownership: share of lines written by the given authors, per file and directory
  - gitshare_file_authors: authors of the current lines of one file`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runMCP(cobraCmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of parallel repository handles per call (0 = use CPU count)")
	cmd.Flags().BoolVar(&opts.cache, "cache", false, "Cache per-commit changes between overwritten calls")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "Cache directory (default: user cache dir)")

	return cmd
}

func runMCP(ctx context.Context, opts mcpOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	providers, metricsHandler, err := initMCPObservability(opts)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	attributionMetrics, err := observability.NewAttributionMetrics(providers.Meter)
	if err != nil {
		return err
	}

	deps := mcp.ServerDeps{
		Logger:      providers.Logger,
		Metrics:     red,
		Attribution: attributionMetrics,
		Tracer:      providers.Tracer,
		Workers:     opts.workers,
	}

	if opts.cache {
		store, cacheErr := openCache(opts.cacheDir)
		if cacheErr != nil {
			return cacheErr
		}

		deps.Cache = store
	}

	if metricsHandler != nil {
		stop, serveErr := serveMetrics(opts.metricsAddr, observability.MetricsMux(providers.Tracer, red, metricsHandler), providers.Logger)
		if serveErr != nil {
			return serveErr
		}

		defer func() {
			err = errors.Join(err, stop())
		}()
	}

	return mcp.NewServer(deps).Run(ctx)
}

func initMCPObservability(opts mcpOptions) (observability.Providers, http.Handler, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true

	if opts.debug {
		cfg.LogLevel = slog.LevelDebug
	}

	if opts.metricsAddr == "" {
		providers, err := observability.Init(cfg)

		return providers, nil, err
	}

	reader, handler, err := observability.PrometheusReader()
	if err != nil {
		return observability.Providers{}, nil, err
	}

	providers, err := observability.InitWithReaders(cfg, os.Stderr, reader)

	return providers, handler, err
}

// serveMetrics listens on addr and serves handler until the returned stop
// function is called.
func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) (stop func() error, err error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	logger.Info("serving metrics", "addr", listener.Addr().String())

	return func() error {
		shutdownErr := srv.Shutdown(context.Background())
		if shutdownErr != nil {
			return fmt.Errorf("shutdown metrics server: %w", shutdownErr)
		}

		return nil
	}, nil
}
