package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/dirtree"
)

// Share thresholds for colouring percentages.
const (
	shareHigh = 0.5
	shareLow  = 0.2
)

const (
	branchMiddle = "├── "
	branchLast   = "└── "
	indentOpen   = "│   "
	indentClosed = "    "
)

// WriteText renders one of the four text views selected by opts.Flat and
// opts.ShowAuthors.
func WriteText(w io.Writer, files contrib.Files, opts Options) error {
	switch {
	case opts.Flat && opts.ShowAuthors:
		return WriteFlatAuthors(w, files, opts)
	case opts.Flat:
		return WriteFlatPercentage(w, files, opts)
	case opts.ShowAuthors:
		return WriteTreeAuthors(w, dirtree.Build(files), opts)
	default:
		return WriteTreePercentage(w, dirtree.Build(files), opts)
	}
}

type fileShare struct {
	path  string
	ratio float64
}

// WriteFlatPercentage lists files by the targets' share, largest first.
// Files the targets never touched are left out unless opts.All is set.
func WriteFlatPercentage(w io.Writer, files contrib.Files, opts Options) error {
	shares := make([]fileShare, 0, len(files))

	for _, path := range files.Paths() {
		shares = append(shares, fileShare{path: path, ratio: files[path].RatioBy(opts.Targets)})
	}

	sortByRatio(shares, func(s fileShare) float64 { return s.ratio }, opts.Reverse)

	p := newPrinter(w, opts.Color)

	for _, s := range shares {
		if !opts.All && !(s.ratio > 0) {
			continue
		}

		p.printf("%s - %s\n", p.percent(s.ratio, "%5.1f%%"), s.path)
	}

	return p.err
}

// WriteFlatAuthors lists every file with its top authors, in path order.
func WriteFlatAuthors(w io.Writer, files contrib.Files, opts Options) error {
	p := newPrinter(w, opts.Color)

	for _, path := range files.Paths() {
		p.printf("%s - %s\n", path, files[path].AuthorsString(opts.MaxAuthors))
	}

	return p.err
}

// WriteTreePercentage prints the directory tree with the targets' share of
// every node. Children are sorted by share and hidden when the targets wrote
// none of their lines, unless opts.All is set.
func WriteTreePercentage(w io.Writer, root *dirtree.Node, opts Options) error {
	p := newPrinter(w, opts.Color)

	var visit func(n *dirtree.Node, prefix string, depth int)

	visit = func(n *dirtree.Node, prefix string, depth int) {
		p.printf("%s - %s\n", n.Name(), p.percent(n.RatioBy(opts.Targets), "%.1f%%"))

		if depth == 0 {
			return
		}

		children := make([]*dirtree.Node, 0, n.Len())

		for _, child := range n.Children() {
			if opts.All || child.LinesBy(opts.Targets) > 0 {
				children = append(children, child)
			}
		}

		sortByRatio(children, func(c *dirtree.Node) float64 { return c.RatioBy(opts.Targets) }, opts.Reverse)

		for i, child := range children {
			branch, indent := branchMiddle, indentOpen
			if i == len(children)-1 {
				branch, indent = branchLast, indentClosed
			}

			p.printf("%s%s", prefix, branch)
			visit(child, prefix+indent, depth-1)
		}
	}

	visit(root, "", opts.MaxDepth)

	return p.err
}

// WriteTreeAuthors prints the directory tree with the top authors of every
// node. Children are listed in name order.
func WriteTreeAuthors(w io.Writer, root *dirtree.Node, opts Options) error {
	p := newPrinter(w, opts.Color)

	var visit func(n *dirtree.Node, prefix string, depth int)

	visit = func(n *dirtree.Node, prefix string, depth int) {
		p.printf("%s - %s\n", n.Name(), n.Record().AuthorsString(opts.MaxAuthors))

		if depth == 0 {
			return
		}

		children := n.Children()

		for i, child := range children {
			branch, indent := branchMiddle, indentOpen
			if i == len(children)-1 {
				branch, indent = branchLast, indentClosed
			}

			p.printf("%s%s", prefix, branch)
			visit(child, prefix+indent, depth-1)
		}
	}

	visit(root, "", opts.MaxDepth)

	return p.err
}

// WriteTable renders a table of files with their line counts, the targets'
// share and the top authors.
func WriteTable(w io.Writer, files contrib.Files, opts Options) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	withTargets := !opts.ShowAuthors && len(opts.Targets) > 0

	header := table.Row{"Path", "Lines"}
	if withTargets {
		header = append(header, "Target", "Share")
	}

	tbl.AppendHeader(append(header, "Top authors"))

	paths := files.Paths()
	if withTargets {
		sortByRatio(paths, func(p string) float64 { return files[p].RatioBy(opts.Targets) }, opts.Reverse)
	}

	p := newPrinter(io.Discard, opts.Color)
	total := contrib.New()

	for _, path := range paths {
		rec := files[path]
		total.Merge(rec.Clone())

		ratio := rec.RatioBy(opts.Targets)
		if withTargets && !opts.All && !(ratio > 0) {
			continue
		}

		row := table.Row{path, humanize.Comma(int64(rec.Total()))}
		if withTargets {
			row = append(row, humanize.Comma(int64(rec.LinesBy(opts.Targets))), p.percent(ratio, "%.1f%%"))
		}

		tbl.AppendRow(append(row, strings.Trim(rec.AuthorsString(opts.MaxAuthors), "()")))
	}

	footer := table.Row{fmt.Sprintf("%d files", len(paths)), humanize.Comma(int64(total.Total()))}
	if withTargets {
		footer = append(footer,
			humanize.Comma(int64(total.LinesBy(opts.Targets))),
			p.percent(total.RatioBy(opts.Targets), "%.1f%%"))
	}

	tbl.AppendFooter(append(footer, ""))
	tbl.Render()

	return nil
}

// printer writes formatted lines and keeps the first write error.
type printer struct {
	w   io.Writer
	err error

	high, mid, low *color.Color
}

func newPrinter(w io.Writer, colored bool) *printer {
	p := &printer{
		w:    w,
		high: color.New(color.FgGreen),
		mid:  color.New(color.FgYellow),
		low:  color.New(color.FgRed),
	}

	for _, c := range []*color.Color{p.high, p.mid, p.low} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) percent(ratio float64, format string) string {
	text := fmt.Sprintf(format, ratio*percent)

	switch {
	case ratio >= shareHigh:
		return p.high.Sprint(text)
	case ratio >= shareLow:
		return p.mid.Sprint(text)
	default:
		return p.low.Sprint(text)
	}
}
