package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal         = "gitshare.attribution.runs.total"
	metricRunDuration       = "gitshare.attribution.run.duration.seconds"
	metricFilesTotal        = "gitshare.attribution.files.total"
	metricCommitsTotal      = "gitshare.attribution.commits.total"
	metricUnattributedHunks = "gitshare.attribution.unattributed.hunks.total"
	metricCacheHitsTotal    = "gitshare.attribution.cache.hits.total"
	metricCacheMissesTotal  = "gitshare.attribution.cache.misses.total"
	metricAttributedLines   = "gitshare.attribution.lines.total"

	attrAttributionMode = "mode"
	attrOutcome         = "outcome"

	outcomeAttributed      = "attributed"
	outcomeSkipped         = "skipped"
	outcomeExpired         = "expired"
	outcomeMissingIdentity = "missing_identity"
)

// AttributionMetrics holds OTel instruments for attribution runs.
type AttributionMetrics struct {
	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	filesTotal        metric.Int64Counter
	commitsTotal      metric.Int64Counter
	unattributedHunks metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	attributedLines   metric.Int64Counter
}

// AttributionStats summarises one attribution run, decoupled from the
// attribution package types.
type AttributionStats struct {
	Mode           string
	Duration       time.Duration
	Files          int64
	FilesSkipped   int64
	Commits        int64
	CommitsSkipped int64
	CommitsExpired int64
	// NoIdentityHunks counts blame hunks without an author identity.
	NoIdentityHunks int64
	// NoIdentityCommits counts walked commits without an author identity.
	// They are included in Commits.
	NoIdentityCommits int64
	CacheHits         int64
	CacheMisses       int64
	Lines             int64
}

// NewAttributionMetrics creates attribution metric instruments from the given meter.
func NewAttributionMetrics(mt metric.Meter) (*AttributionMetrics, error) {
	in := newInstruments(mt)

	am := &AttributionMetrics{
		runsTotal:         in.count(metricRunsTotal, "Total attribution runs", "{run}"),
		runDuration:       in.seconds(metricRunDuration, "Attribution run duration in seconds"),
		filesTotal:        in.count(metricFilesTotal, "Files blamed by outcome", "{file}"),
		commitsTotal:      in.count(metricCommitsTotal, "Commits walked by outcome", "{commit}"),
		unattributedHunks: in.count(metricUnattributedHunks, "Blame hunks without an author identity", "{hunk}"),
		cacheHits:         in.count(metricCacheHitsTotal, "Commit delta cache hits", "{hit}"),
		cacheMisses:       in.count(metricCacheMissesTotal, "Commit delta cache misses", "{miss}"),
		attributedLines:   in.count(metricAttributedLines, "Lines attributed to authors", "{line}"),
	}

	if in.err != nil {
		return nil, in.err
	}

	return am, nil
}

// RecordRun records the statistics of a completed run.
// Safe to call on a nil receiver (no-op).
func (am *AttributionMetrics) RecordRun(ctx context.Context, stats AttributionStats) {
	if am == nil {
		return
	}

	mode := attribute.String(attrAttributionMode, stats.Mode)

	am.runsTotal.Add(ctx, 1, metric.WithAttributes(mode))
	am.runDuration.Record(ctx, stats.Duration.Seconds(), metric.WithAttributes(mode))
	am.attributedLines.Add(ctx, stats.Lines, metric.WithAttributes(mode))

	outcome := func(name string) metric.AddOption {
		return metric.WithAttributes(mode, attribute.String(attrOutcome, name))
	}

	am.filesTotal.Add(ctx, stats.Files, outcome(outcomeAttributed))
	am.filesTotal.Add(ctx, stats.FilesSkipped, outcome(outcomeSkipped))
	am.commitsTotal.Add(ctx, stats.Commits-stats.NoIdentityCommits, outcome(outcomeAttributed))
	am.commitsTotal.Add(ctx, stats.NoIdentityCommits, outcome(outcomeMissingIdentity))
	am.commitsTotal.Add(ctx, stats.CommitsSkipped, outcome(outcomeSkipped))
	am.commitsTotal.Add(ctx, stats.CommitsExpired, outcome(outcomeExpired))
	am.unattributedHunks.Add(ctx, stats.NoIdentityHunks, outcome(outcomeMissingIdentity))
	am.cacheHits.Add(ctx, stats.CacheHits, metric.WithAttributes(mode))
	am.cacheMisses.Add(ctx, stats.CacheMisses, metric.WithAttributes(mode))
}
