package attribution

import (
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
)

// RenameTarget is where the content of a path continued. Removed means the
// path ceased to exist.
type RenameTarget struct {
	Path    string `json:"path,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// MovedTo returns a target pointing at path.
func MovedTo(path string) RenameTarget {
	return RenameTarget{Path: path}
}

// Removal is the target of a deleted path.
func Removal() RenameTarget {
	return RenameTarget{Removed: true}
}

// String implements fmt.Stringer.
func (t RenameTarget) String() string {
	if t.Removed {
		return "<removed>"
	}

	return t.Path
}

// Partial is the attribution of a contiguous, oldest-first range of commits:
// the lines credited per path and the rename edges seen in the range.
type Partial struct {
	Files   contrib.Files
	Renames map[string]RenameTarget
}

// NewPartial creates an empty partial.
func NewPartial() *Partial {
	return &Partial{
		Files:   contrib.Files{},
		Renames: make(map[string]RenameTarget),
	}
}

// AddLines credits n lines at path to author.
func (p *Partial) AddLines(path, author string, n int) {
	p.Files.Get(path).AddLines(author, n)
}

// Rename records that from continued at to.
func (p *Partial) Rename(from string, to RenameTarget) {
	p.Renames[from] = to
}

// Combine merges two partials covering adjacent ranges, older first, into
// one covering both. Records of older are moved along the renames of newer,
// or dropped when newer removed their path, then newer's records are added.
// Rename chains are composed so that x->y followed by y->z becomes x->z.
//
// Combine is not commutative. Both arguments are consumed.
func Combine(older, newer *Partial) *Partial {
	out := NewPartial()

	for path, rec := range older.Files {
		target, renamed := newer.Renames[path]

		switch {
		case !renamed:
			out.Files.Get(path).Merge(rec)
		case target.Removed:
			// The file ceased to exist; its history is not carried forward.
		default:
			out.Files.Get(target.Path).Merge(rec)
		}
	}

	for path, rec := range newer.Files {
		out.Files.Get(path).Merge(rec)
	}

	out.Renames = composeRenames(older.Renames, newer.Renames)

	return out
}

// composeRenames chains newer edges onto older ones. For each newer edge
// from->to, the first older edge (by source path order) ending at from is
// rewritten to end at to. Only that first edge is rewritten. Without a match
// the newer edge is added, unless older already has an edge from the same
// path, which then wins. Keeping the older edge makes the composition
// associative, so Reduce and Fold agree on histories that reuse a path.
func composeRenames(older, newer map[string]RenameTarget) map[string]RenameTarget {
	out := maps.Clone(older)
	if out == nil {
		out = make(map[string]RenameTarget, len(newer))
	}

	sources := slices.Sorted(maps.Keys(older))

	for _, from := range slices.Sorted(maps.Keys(newer)) {
		to := newer[from]

		if src, ok := firstEndingAt(sources, older, from); ok {
			out[src] = to

			continue
		}

		if _, exists := out[from]; !exists {
			out[from] = to
		}
	}

	return out
}

func firstEndingAt(sources []string, edges map[string]RenameTarget, path string) (string, bool) {
	for _, src := range sources {
		target := edges[src]
		if !target.Removed && target.Path == path {
			return src, true
		}
	}

	return "", false
}

// Retain keeps only the records whose path satisfies keep.
func (p *Partial) Retain(keep func(path string) bool) {
	p.Files.Retain(keep)
}
