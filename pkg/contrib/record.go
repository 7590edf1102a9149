// Package contrib holds the contribution record: per-author line counts for a
// file or a directory, and the ratio and ranking queries over it.
package contrib

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

// percent converts ratios to percentages.
const percent = 100.0

// Record maps author identities to line counts. The total always equals the
// sum of the per-author counts.
type Record struct {
	authors map[string]int
	total   int
}

// AuthorShare is one author's share of a record.
type AuthorShare struct {
	Author string
	Lines  int
	Ratio  float64
}

// New creates an empty record.
func New() *Record {
	return &Record{authors: make(map[string]int)}
}

// FromCounts builds a record from a map of author line counts. Negative counts
// are ignored.
func FromCounts(counts map[string]int) *Record {
	r := New()

	for author, n := range counts {
		r.AddLines(author, n)
	}

	return r
}

// AddLines credits n lines to author. n must not be negative.
func (r *Record) AddLines(author string, n int) {
	if n < 0 {
		return
	}

	if r.authors == nil {
		r.authors = make(map[string]int)
	}

	r.authors[author] += n
	r.total += n
}

// Merge adds every count of other into r. other must not be used afterwards.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}

	for author, n := range other.authors {
		r.AddLines(author, n)
	}
}

// FilterIgnored removes the given identities and their lines from the record.
func (r *Record) FilterIgnored(ignored []string) {
	for _, id := range ignored {
		n, ok := r.authors[id]
		if !ok {
			continue
		}

		delete(r.authors, id)
		r.total -= n
	}
}

// LinesBy returns the lines credited to any of the given identities.
func (r *Record) LinesBy(ids []string) int {
	lines := 0

	for author, n := range r.authors {
		if slices.Contains(ids, author) {
			lines += n
		}
	}

	return lines
}

// RatioBy returns LinesBy(ids) / Total(). The result is NaN for an empty record.
func (r *Record) RatioBy(ids []string) float64 {
	return float64(r.LinesBy(ids)) / float64(r.total)
}

// Total returns the number of attributed lines.
func (r *Record) Total() int {
	return r.total
}

// Lines returns the lines credited to a single author.
func (r *Record) Lines(author string) int {
	return r.authors[author]
}

// Len returns the number of authors.
func (r *Record) Len() int {
	return len(r.authors)
}

// IsEmpty reports whether the record has no lines.
func (r *Record) IsEmpty() bool {
	return r.total == 0
}

// Authors returns the author identities in sorted order.
func (r *Record) Authors() []string {
	return slices.Sorted(maps.Keys(r.authors))
}

// Counts returns a copy of the author line counts.
func (r *Record) Counts() map[string]int {
	return maps.Clone(r.authors)
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	authors := maps.Clone(r.authors)
	if authors == nil {
		authors = make(map[string]int)
	}

	return &Record{authors: authors, total: r.total}
}

// Equal reports whether both records hold the same counts.
func (r *Record) Equal(other *Record) bool {
	return r.total == other.total && maps.Equal(r.authors, other.authors)
}

// TopAuthors returns up to n authors by descending share. Authors start in
// sorted order and the sort is stable, so ties and NaN ratios keep that order.
func (r *Record) TopAuthors(n int) []AuthorShare {
	shares := make([]AuthorShare, 0, len(r.authors))

	for _, author := range r.Authors() {
		lines := r.authors[author]
		shares = append(shares, AuthorShare{
			Author: author,
			Lines:  lines,
			Ratio:  float64(lines) / float64(r.total),
		})
	}

	SortShares(shares)

	if n >= 0 && n < len(shares) {
		shares = shares[:n]
	}

	return shares
}

// AuthorsString renders the top n authors as "(a: 60.0%, b: 40.0%)".
func (r *Record) AuthorsString(n int) string {
	top := r.TopAuthors(n)
	parts := make([]string, 0, len(top))

	for _, share := range top {
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", share.Author, share.Ratio*percent))
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	parts := make([]string, 0, len(r.authors))

	for _, author := range r.Authors() {
		parts = append(parts, fmt.Sprintf("%s:%d", author, r.authors[author]))
	}

	return fmt.Sprintf("{%s total=%d}", strings.Join(parts, " "), r.total)
}

// SortShares orders shares by descending ratio. Incomparable ratios count as
// equal and keep their relative order.
func SortShares(shares []AuthorShare) {
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Ratio > shares[j].Ratio
	})
}
