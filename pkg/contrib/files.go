package contrib

import (
	"maps"
	"slices"
)

// Files maps slash-separated paths to their records.
type Files map[string]*Record

// Get returns the record for path, creating it when missing.
func (f Files) Get(path string) *Record {
	r, ok := f[path]
	if !ok {
		r = New()
		f[path] = r
	}

	return r
}

// Paths returns the paths in sorted order.
func (f Files) Paths() []string {
	return slices.Sorted(maps.Keys(f))
}

// FilterIgnored removes the ignored identities from every record.
func (f Files) FilterIgnored(ignored []string) {
	if len(ignored) == 0 {
		return
	}

	for _, r := range f {
		r.FilterIgnored(ignored)
	}
}

// DropEmpty removes every path whose record has no lines.
func (f Files) DropEmpty() {
	maps.DeleteFunc(f, func(_ string, r *Record) bool {
		return r.IsEmpty()
	})
}

// Retain keeps only the paths for which keep returns true.
func (f Files) Retain(keep func(path string) bool) {
	maps.DeleteFunc(f, func(path string, _ *Record) bool {
		return !keep(path)
	})
}

// Total returns the combined record of every file.
func (f Files) Total() *Record {
	sum := New()

	for _, r := range f {
		sum.Merge(r.Clone())
	}

	return sum
}
