package dirtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/dirtree"
)

func sampleFiles() contrib.Files {
	return contrib.Files{
		"a/b.txt":       contrib.FromCounts(map[string]int{"alice": 4}),
		"a/c.txt":       contrib.FromCounts(map[string]int{"bob": 6}),
		"a/deep/d.go":   contrib.FromCounts(map[string]int{"alice": 1, "bob": 1}),
		"README.md":     contrib.FromCounts(map[string]int{"carol": 3}),
		"z/only/one.rs": contrib.FromCounts(map[string]int{"bob": 2}),
	}
}

func TestBuildAggregatesIntoAncestors(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(contrib.Files{
		"a/b.txt": contrib.FromCounts(map[string]int{"alice": 4}),
		"a/c.txt": contrib.FromCounts(map[string]int{"bob": 6}),
	})

	a, ok := root.Find("a")
	require.True(t, ok)

	assert.Equal(t, 10, a.Record().Total())
	assert.Equal(t, map[string]int{"alice": 4, "bob": 6}, a.Record().Counts())
	assert.Equal(t, a.Record().Counts(), root.Record().Counts())
	assert.Equal(t, dirtree.RootName, root.Name())
	assert.Empty(t, root.Path())
}

func TestBuildKeepsInputRecordsIntact(t *testing.T) {
	t.Parallel()

	files := sampleFiles()
	dirtree.Build(files)

	assert.Equal(t, 4, files["a/b.txt"].Total())
	assert.Equal(t, 6, files["a/c.txt"].Total())
}

func TestParentTotalIsSumOfChildren(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(sampleFiles())

	root.Walk(func(node *dirtree.Node, _ int) bool {
		if node.IsFile() {
			assert.Zero(t, node.Len())

			return true
		}

		sum := 0
		for _, child := range node.Children() {
			sum += child.Record().Total()
		}

		assert.Equal(t, node.Record().Total(), sum, node.Path())

		return true
	})
}

func TestChildrenSortedByName(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(sampleFiles())

	var names []string
	for _, child := range root.Children() {
		names = append(names, child.Name())
	}

	assert.Equal(t, []string{"README.md", "a", "z"}, names)
}

func TestFind(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(sampleFiles())

	node, ok := root.Find("a/deep/d.go")
	require.True(t, ok)
	assert.True(t, node.IsFile())
	assert.Equal(t, "a/deep/d.go", node.Path())
	assert.Equal(t, "d.go", node.Name())

	self, ok := root.Find("/")
	require.True(t, ok)
	assert.Same(t, root, self)

	_, ok = root.Find("a/missing")
	assert.False(t, ok)
}

func TestWalkDepthAndPruning(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(sampleFiles())

	var visited []string

	root.Walk(func(node *dirtree.Node, depth int) bool {
		visited = append(visited, node.Path())

		return depth < 1
	})

	assert.Equal(t, []string{"", "README.md", "a", "z"}, visited)
}

func TestRatioAndTopAuthors(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(sampleFiles())
	a, ok := root.Find("a")
	require.True(t, ok)

	assert.InDelta(t, 5.0/12.0, a.RatioBy([]string{"alice"}), 1e-9)
	assert.Equal(t, 7, a.LinesBy([]string{"bob"}))

	top := a.TopAuthors(1)
	require.Len(t, top, 1)
	assert.Equal(t, "bob", top[0].Author)
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	root := dirtree.Build(contrib.Files{})

	assert.Zero(t, root.Len())
	assert.Zero(t, root.Record().Total())
}
