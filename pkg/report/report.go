// Package report renders attribution results as text, tables, JSON, YAML or
// an HTML treemap.
package report

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/dirtree"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPlot  Format = "plot"
)

// UnlimitedDepth disables the tree depth limit.
const UnlimitedDepth = -1

// percent converts ratios to percentages.
const percent = 100.0

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatTable, FormatJSON, FormatYAML, FormatPlot}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Formats(), f) {
		return f, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Options controls what a report shows.
type Options struct {
	// Targets are the identities whose share is reported.
	Targets []string
	// ShowAuthors lists the top authors instead of the target share.
	ShowAuthors bool
	// Flat lists files instead of a directory tree.
	Flat bool
	// Reverse sorts by ascending share.
	Reverse bool
	// All includes files and directories the targets never touched.
	All bool
	// MaxAuthors is the number of authors listed per entry.
	MaxAuthors int
	// MaxDepth limits the tree depth below the root; UnlimitedDepth shows all.
	MaxDepth int
	// Color enables ANSI colours in text output.
	Color bool
}

// Meta describes the run that produced a report.
type Meta struct {
	Repository  string
	Mode        string
	Ignored     []string
	MaxAge      string
	GeneratedAt time.Time
}

// Author is one author's share of a file or directory.
type Author struct {
	ID    string  `json:"id"    yaml:"id"`
	Lines int     `json:"lines" yaml:"lines"`
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// File is the attribution of one file.
type File struct {
	Path    string   `json:"path"              yaml:"path"`
	Total   int      `json:"total"             yaml:"total"`
	Target  *int     `json:"target,omitempty"  yaml:"target,omitempty"`
	Ratio   *float64 `json:"ratio,omitempty"   yaml:"ratio,omitempty"`
	Authors []Author `json:"authors"           yaml:"authors"`
}

// Node is a directory tree entry with its aggregated counts.
type Node struct {
	Name     string   `json:"name"               yaml:"name"`
	Path     string   `json:"path"               yaml:"path"`
	Total    int      `json:"total"              yaml:"total"`
	Target   *int     `json:"target,omitempty"   yaml:"target,omitempty"`
	Ratio    *float64 `json:"ratio,omitempty"    yaml:"ratio,omitempty"`
	Authors  []Author `json:"authors"            yaml:"authors"`
	Children []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
}

// Report is the structured form used by the JSON and YAML formats.
type Report struct {
	Repository  string    `json:"repository,omitempty" yaml:"repository,omitempty"`
	Mode        string    `json:"mode"                 yaml:"mode"`
	Targets     []string  `json:"targets,omitempty"    yaml:"targets,omitempty"`
	Ignored     []string  `json:"ignored,omitempty"    yaml:"ignored,omitempty"`
	MaxAge      string    `json:"max_age,omitempty"    yaml:"max_age,omitempty"`
	GeneratedAt time.Time `json:"generated_at"         yaml:"generated_at"`
	Total       int       `json:"total"                yaml:"total"`
	Files       []File    `json:"files"                yaml:"files"`
	Tree        *Node     `json:"tree,omitempty"       yaml:"tree,omitempty"`
}

// Write renders files in the given format.
func Write(w io.Writer, format Format, files contrib.Files, opts Options, meta Meta) error {
	switch format {
	case FormatText:
		return WriteText(w, files, opts)
	case FormatTable:
		return WriteTable(w, files, opts)
	case FormatJSON:
		return WriteJSON(w, Build(files, opts, meta))
	case FormatYAML:
		return WriteYAML(w, Build(files, opts, meta))
	case FormatPlot:
		return WritePlot(w, files, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Build creates the structured report. Files are listed in path order; the
// tree is included unless opts.Flat is set.
func Build(files contrib.Files, opts Options, meta Meta) *Report {
	rep := &Report{
		Repository:  meta.Repository,
		Mode:        meta.Mode,
		Targets:     opts.Targets,
		Ignored:     meta.Ignored,
		MaxAge:      meta.MaxAge,
		GeneratedAt: meta.GeneratedAt.UTC(),
		Files:       make([]File, 0, len(files)),
	}

	withTargets := !opts.ShowAuthors && len(opts.Targets) > 0

	for _, path := range files.Paths() {
		rec := files[path]
		rep.Total += rec.Total()

		f := File{Path: path, Total: rec.Total(), Authors: authorsOf(rec, opts.MaxAuthors)}
		if withTargets {
			f.Target, f.Ratio = targetShare(rec, opts.Targets)
		}

		rep.Files = append(rep.Files, f)
	}

	if !opts.Flat {
		rep.Tree = buildNode(dirtree.Build(files), opts, withTargets, opts.MaxDepth)
	}

	return rep
}

func buildNode(n *dirtree.Node, opts Options, withTargets bool, depth int) *Node {
	out := &Node{
		Name:    n.Name(),
		Path:    n.Path(),
		Total:   n.Record().Total(),
		Authors: authorsOf(n.Record(), opts.MaxAuthors),
	}

	if withTargets {
		out.Target, out.Ratio = targetShare(n.Record(), opts.Targets)
	}

	if depth == 0 {
		return out
	}

	for _, child := range n.Children() {
		out.Children = append(out.Children, buildNode(child, opts, withTargets, depth-1))
	}

	return out
}

func authorsOf(rec *contrib.Record, limit int) []Author {
	top := rec.TopAuthors(limit)
	out := make([]Author, len(top))

	for i, share := range top {
		out[i] = Author{ID: share.Author, Lines: share.Lines, Ratio: share.Ratio}
	}

	return out
}

func targetShare(rec *contrib.Record, targets []string) (lines *int, ratio *float64) {
	n := rec.LinesBy(targets)
	if rec.Total() == 0 {
		return &n, nil
	}

	r := float64(n) / float64(rec.Total())

	return &n, &r
}

// sortByRatio orders entries by descending ratio, or ascending when reverse
// is set. The sort is stable.
func sortByRatio[T any](items []T, ratio func(T) float64, reverse bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if reverse {
			return ratio(items[i]) < ratio(items[j])
		}

		return ratio(items[i]) > ratio(items[j])
	})
}
