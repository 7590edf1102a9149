package mcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/gitshare/pkg/attribution"
	"github.com/Sumatoshi-tech/gitshare/pkg/config"
	"github.com/Sumatoshi-tech/gitshare/pkg/ownership"
	"github.com/Sumatoshi-tech/gitshare/pkg/report"
	"github.com/Sumatoshi-tech/gitshare/pkg/scope"
	"github.com/Sumatoshi-tech/gitshare/pkg/units"
)

// allAuthors lists every author of a record.
const allAuthors = -1

// FileAuthors is the result of the gitshare_file_authors tool.
type FileAuthors struct {
	Path    string          `json:"path"`
	Total   int             `json:"total"`
	Authors []report.Author `json:"authors"`
}

// handleOwnership processes gitshare_ownership tool calls.
func (s *Server) handleOwnership(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input OwnershipInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoPath(input.RepoPath)
	if err != nil {
		return errorResult(err)
	}

	if input.MaxAuthors < 0 {
		return errorResult(ErrNegativeMaxAuthors)
	}

	maxAge, err := parseMaxAge(input.MaxAge)
	if err != nil {
		return errorResult(err)
	}

	mode := attribution.ModeDirect
	if input.Overwritten {
		mode = attribution.ModeOverwritten
	}

	sess, err := ownership.Open(s.request(ownership.Request{
		RepoPath:    input.RepoPath,
		Mode:        mode,
		Targets:     input.Emails,
		ShowAuthors: input.ShowAuthors,
		IgnoreUsers: input.IgnoreUsers,
		MaxAge:      maxAge,
		Scope:       scope.Options{Dir: strings.Trim(input.Dir, "/")},
	}))
	if err != nil {
		return errorResult(err)
	}
	defer sess.Close()

	out, err := sess.Run(ctx)
	if err != nil {
		return errorResult(err)
	}

	opts := report.Options{
		Targets:     out.Targets,
		ShowAuthors: input.ShowAuthors,
		Flat:        input.Flat,
		MaxAuthors:  input.MaxAuthors,
		MaxDepth:    report.UnlimitedDepth,
	}

	if opts.MaxAuthors == 0 {
		opts.MaxAuthors = config.DefaultMaxAuthors
	}

	if input.MaxDepth != nil {
		opts.MaxDepth = *input.MaxDepth
	}

	return jsonResult(report.Build(out.Files, opts, sess.Meta(out, time.Now())))
}

// handleFileAuthors processes gitshare_file_authors tool calls.
func (s *Server) handleFileAuthors(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input FileAuthorsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRepoPath(input.RepoPath)
	if err != nil {
		return errorResult(err)
	}

	path := strings.Trim(input.Path, "/")
	if path == "" {
		return errorResult(ErrEmptyPath)
	}

	maxAge, err := parseMaxAge(input.MaxAge)
	if err != nil {
		return errorResult(err)
	}

	sess, err := ownership.Open(s.request(ownership.Request{
		RepoPath:    input.RepoPath,
		ShowAuthors: true,
		MaxAge:      maxAge,
		Scope:       scope.Options{Whitelist: "^" + regexp.QuoteMeta(path) + "$"},
	}))
	if err != nil {
		return errorResult(err)
	}
	defer sess.Close()

	if len(sess.Paths()) == 0 {
		return errorResult(fmt.Errorf("%w: %s", ErrPathNotInHead, path))
	}

	out, err := sess.Run(ctx)
	if err != nil {
		return errorResult(err)
	}

	result := FileAuthors{Path: path, Authors: []report.Author{}}

	rep := report.Build(out.Files, report.Options{Flat: true, ShowAuthors: true, MaxAuthors: allAuthors}, report.Meta{})
	if len(rep.Files) > 0 {
		result.Total = rep.Files[0].Total
		result.Authors = rep.Files[0].Authors
	}

	return jsonResult(result)
}

// request fills the server wide dependencies into req.
func (s *Server) request(req ownership.Request) ownership.Request {
	req.Workers = s.deps.Workers
	req.Cache = s.deps.Cache
	req.Logger = s.deps.Logger
	req.Metrics = s.deps.Attribution
	req.Tracer = s.deps.Tracer

	return req
}

func parseMaxAge(raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}

	d, err := units.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", config.ErrInvalidMaxAge, err)
	}

	return d, nil
}
