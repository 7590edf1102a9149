package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameOwnership   = "gitshare_ownership"
	ToolNameFileAuthors = "gitshare_file_authors"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrPathNotInHead indicates the file is not part of the HEAD snapshot.
	ErrPathNotInHead = errors.New("path is not a file of HEAD")
	// ErrNegativeMaxAuthors indicates a negative max_authors value.
	ErrNegativeMaxAuthors = errors.New("max_authors must not be negative")
)

// Input types (auto-generate JSON schemas via struct tags).

// OwnershipInput is the input schema for the gitshare_ownership tool.
type OwnershipInput struct {
	Dir         string   `json:"dir,omitempty"          jsonschema:"only attribute files under this repository relative directory"`
	Emails      []string `json:"emails,omitempty"       jsonschema:"target author emails (default: the repository user.email)"`
	Flat        bool     `json:"flat,omitempty"         jsonschema:"omit the directory tree"`
	IgnoreUsers []string `json:"ignore_users,omitempty" jsonschema:"author emails removed before computing shares"`
	MaxAge      string   `json:"max_age,omitempty"      jsonschema:"ignore lines older than this (e.g. 6M 90d 2w 1y)"`
	MaxAuthors  int      `json:"max_authors,omitempty"  jsonschema:"number of top authors per entry (default: 3)"`
	MaxDepth    *int     `json:"max_depth,omitempty"    jsonschema:"directory tree depth (default: unlimited)"`
	Overwritten bool     `json:"overwritten,omitempty"  jsonschema:"count every line an author ever wrote instead of blaming HEAD"`
	RepoPath    string   `json:"repo_path"              jsonschema:"absolute path to a Git repository"`
	ShowAuthors bool     `json:"show_authors,omitempty" jsonschema:"report top authors instead of the targets share"`
}

// FileAuthorsInput is the input schema for the gitshare_file_authors tool.
type FileAuthorsInput struct {
	MaxAge   string `json:"max_age,omitempty" jsonschema:"ignore lines older than this (e.g. 6M 90d 2w 1y)"`
	Path     string `json:"path"              jsonschema:"repository relative file path"`
	RepoPath string `json:"repo_path"         jsonschema:"absolute path to a Git repository"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateRepoPath checks that repoPath is an existing absolute directory.
func validateRepoPath(repoPath string) error {
	if repoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repoPath) {
		return ErrRepoPathNotAbsolute
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, repoPath)
	}

	return nil
}
