// Package scope selects which files of the HEAD snapshot are attributed.
package scope

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
)

const allLanguages = "all"

// DefaultBlacklistedPrefixes are the path prefixes skipped with SkipVendor.
var DefaultBlacklistedPrefixes = []string{
	"vendor/",
	"vendors/",
	"node_modules/",
	"package-lock.json",
	"Gopkg.lock",
}

// Sentinel errors for scope construction.
var (
	// ErrInvalidWhitelist is returned when the whitelist is not a valid regexp.
	ErrInvalidWhitelist = errors.New("invalid whitelist pattern")
	// ErrOutsideRepository is returned when the directory filter leaves the work tree.
	ErrOutsideRepository = errors.New("directory is outside the repository")
)

// Options configures a Filter.
type Options struct {
	// Dir keeps only paths under this repository relative directory.
	Dir string
	// SkipVendor drops BlacklistedPrefixes and paths enry considers vendored.
	SkipVendor bool
	// BlacklistedPrefixes overrides DefaultBlacklistedPrefixes.
	BlacklistedPrefixes []string
	// Languages keeps only files of these enry languages, case-insensitive.
	// Empty or "all" keeps every file.
	Languages []string
	// Whitelist keeps only paths matching this regexp.
	Whitelist string
}

// Filter decides whether a path is in scope.
type Filter struct {
	dir        string
	skipVendor bool
	skip       []string
	languages  map[string]bool
	nameFilter *regexp.Regexp
}

// New creates a filter.
func New(opts Options) (*Filter, error) {
	f := &Filter{
		dir:        strings.Trim(filepath.ToSlash(opts.Dir), "/"),
		skipVendor: opts.SkipVendor,
		skip:       opts.BlacklistedPrefixes,
	}

	if f.dir == "." {
		f.dir = ""
	}

	if f.skipVendor && len(f.skip) == 0 {
		f.skip = DefaultBlacklistedPrefixes
	}

	for _, lang := range opts.Languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" || lang == allLanguages {
			f.languages = nil

			break
		}

		if f.languages == nil {
			f.languages = make(map[string]bool)
		}

		f.languages[lang] = true
	}

	if opts.Whitelist != "" {
		re, err := regexp.Compile(opts.Whitelist)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWhitelist, err)
		}

		f.nameFilter = re
	}

	return f, nil
}

// Match reports whether name is in scope. contents is only called when the
// language cannot be told from the file name; it may be nil.
func (f *Filter) Match(name string, contents func() []byte) bool {
	if f.dir != "" && name != f.dir && !strings.HasPrefix(name, f.dir+"/") {
		return false
	}

	if f.skipVendor {
		for _, prefix := range f.skip {
			if strings.HasPrefix(name, prefix) {
				return false
			}
		}

		if enry.IsVendor(name) {
			return false
		}
	}

	if f.nameFilter != nil && !f.nameFilter.MatchString(name) {
		return false
	}

	if f.languages == nil {
		return true
	}

	lang := enry.GetLanguage(path.Base(name), nil)
	if lang == "" && contents != nil {
		if data := contents(); len(data) > 0 {
			lang = enry.GetLanguage(path.Base(name), data)
		}
	}

	return lang != "" && f.languages[strings.ToLower(lang)]
}

// Select returns the in-scope files of the HEAD snapshot in tree order.
func (f *Filter) Select(repo *gitlib.Repository) ([]string, error) {
	files, err := repo.HeadFiles()
	if err != nil {
		return nil, fmt.Errorf("list HEAD files: %w", err)
	}

	var paths []string

	for _, file := range files {
		contents := func() []byte {
			data, blobErr := repo.LookupBlob(file.Hash)
			if blobErr != nil {
				return nil
			}

			return data
		}

		if f.Match(file.Path, contents) {
			paths = append(paths, file.Path)
		}
	}

	return paths, nil
}

// RelativeDir turns dir, absolute or relative to the current directory, into
// a slash separated path relative to workdir. Both are canonicalised first so
// symlinked checkouts compare equal.
func RelativeDir(workdir, dir string) (string, error) {
	root, err := canonical(workdir)
	if err != nil {
		return "", err
	}

	target, err := canonical(dir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepository, dir)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepository, dir)
	}

	if rel == "." {
		return "", nil
	}

	return filepath.ToSlash(rel), nil
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}

	return resolved, nil
}
