package contrib_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
)

func sumOf(r *contrib.Record) int {
	sum := 0
	for _, n := range r.Counts() {
		sum += n
	}

	return sum
}

func TestAddLinesKeepsTotal(t *testing.T) {
	t.Parallel()

	r := contrib.New()
	r.AddLines("alice", 3)
	r.AddLines("bob", 2)
	r.AddLines("alice", 4)
	r.AddLines("carol", 0)
	r.AddLines("dave", -5)

	assert.Equal(t, 9, r.Total())
	assert.Equal(t, sumOf(r), r.Total())
	assert.Equal(t, 7, r.Lines("alice"))
	assert.Equal(t, []string{"alice", "bob", "carol"}, r.Authors())
}

func TestZeroValueRecord(t *testing.T) {
	t.Parallel()

	var r contrib.Record

	r.AddLines("alice", 2)
	assert.Equal(t, 2, r.Total())
}

func TestMergeWithEmptyIsIdentity(t *testing.T) {
	t.Parallel()

	a := contrib.FromCounts(map[string]int{"alice": 10, "bob": 5})
	want := a.Clone()

	a.Merge(contrib.New())
	a.Merge(nil)

	assert.True(t, a.Equal(want))
}

func TestMergeCommutativeAndAssociative(t *testing.T) {
	t.Parallel()

	mk := func() (*contrib.Record, *contrib.Record, *contrib.Record) {
		return contrib.FromCounts(map[string]int{"alice": 3, "bob": 1}),
			contrib.FromCounts(map[string]int{"bob": 4, "carol": 2}),
			contrib.FromCounts(map[string]int{"alice": 7, "dave": 9})
	}

	a, b, c := mk()
	a.Merge(b)
	a.Merge(c)

	a2, b2, c2 := mk()
	b2.Merge(c2)
	a2.Merge(b2)

	assert.True(t, a.Equal(a2), "(a+b)+c != a+(b+c): %s vs %s", a, a2)

	x, y, _ := mk()
	x.Merge(y.Clone())

	x2, y2, _ := mk()
	y2.Merge(x2)

	assert.True(t, x.Equal(y2))
	assert.Equal(t, sumOf(a), a.Total())
}

func TestFilterIgnored(t *testing.T) {
	t.Parallel()

	r := contrib.FromCounts(map[string]int{"alice": 10, "bob": 5})
	r.FilterIgnored([]string{"alice", "nobody"})

	assert.Equal(t, map[string]int{"bob": 5}, r.Counts())
	assert.Equal(t, 5, r.Total())
	assert.Equal(t, sumOf(r), r.Total())
}

func TestLinesAndRatioBy(t *testing.T) {
	t.Parallel()

	r := contrib.FromCounts(map[string]int{"alice": 6, "bob": 2, "carol": 2})

	assert.Equal(t, 8, r.LinesBy([]string{"alice", "bob"}))
	assert.Zero(t, r.LinesBy([]string{"zed"}))
	assert.InDelta(t, 0.6, r.RatioBy([]string{"alice"}), 1e-9)

	solo := contrib.FromCounts(map[string]int{"alice": 4})
	assert.InDelta(t, 1.0, solo.RatioBy([]string{"alice"}), 1e-9)
}

func TestRatioByEmptyIsNaN(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsNaN(contrib.New().RatioBy([]string{"alice"})))
}

func TestTopAuthors(t *testing.T) {
	t.Parallel()

	r := contrib.FromCounts(map[string]int{"alice": 6, "bob": 3, "carol": 1})

	top := r.TopAuthors(2)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].Author)
	assert.Equal(t, 6, top[0].Lines)
	assert.InDelta(t, 0.6, top[0].Ratio, 1e-9)
	assert.Equal(t, "bob", top[1].Author)

	assert.Len(t, r.TopAuthors(10), 3)
	assert.Empty(t, r.TopAuthors(0))
}

func TestTopAuthorsTiesKeepSortedOrder(t *testing.T) {
	t.Parallel()

	r := contrib.FromCounts(map[string]int{"dave": 2, "bob": 2, "carol": 2, "alice": 1})

	top := r.TopAuthors(-1)
	require.Len(t, top, 4)

	got := []string{top[0].Author, top[1].Author, top[2].Author, top[3].Author}
	assert.Equal(t, []string{"bob", "carol", "dave", "alice"}, got)
}

func TestSortSharesNaNKeepsOrder(t *testing.T) {
	t.Parallel()

	shares := []contrib.AuthorShare{
		{Author: "a", Ratio: math.NaN()},
		{Author: "b", Ratio: math.NaN()},
		{Author: "c", Ratio: math.NaN()},
	}

	contrib.SortShares(shares)

	assert.Equal(t, "a", shares[0].Author)
	assert.Equal(t, "b", shares[1].Author)
	assert.Equal(t, "c", shares[2].Author)
}

func TestAuthorsString(t *testing.T) {
	t.Parallel()

	r := contrib.FromCounts(map[string]int{"a@x": 3, "b@y": 2})

	assert.Equal(t, "(a@x: 60.0%, b@y: 40.0%)", r.AuthorsString(3))
	assert.Equal(t, "(a@x: 60.0%)", r.AuthorsString(1))
	assert.Equal(t, "()", contrib.New().AuthorsString(3))
	assert.Equal(t, "{a@x:3 b@y:2 total=5}", r.String())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	r := contrib.FromCounts(map[string]int{"alice": 1})
	c := r.Clone()
	c.AddLines("alice", 5)

	assert.Equal(t, 1, r.Total())
	assert.Equal(t, 6, c.Total())
}

func TestFiles(t *testing.T) {
	t.Parallel()

	files := contrib.Files{}
	files.Get("b.txt").AddLines("alice", 3)
	files.Get("a.txt").AddLines("bob", 2)
	files.Get("a.txt").AddLines("alice", 1)
	files.Get("c.txt").AddLines("bob", 4)

	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, files.Paths())

	total := files.Total()
	assert.Equal(t, 10, total.Total())
	assert.Equal(t, 4, total.Lines("alice"))

	files.FilterIgnored([]string{"bob"})
	files.DropEmpty()
	assert.Equal(t, []string{"a.txt", "b.txt"}, files.Paths())

	files.Retain(func(p string) bool { return p == "b.txt" })
	assert.Equal(t, []string{"b.txt"}, files.Paths())
	assert.Equal(t, 3, files["b.txt"].Total())
}
