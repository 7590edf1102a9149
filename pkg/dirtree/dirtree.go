// Package dirtree rolls per-file contribution records up into a directory
// hierarchy. Every node owns its children and holds the sum of the records of
// all files below it.
package dirtree

import (
	"maps"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
)

// RootName is the name of the root node.
const RootName = "/"

// Node is a directory or file in the tree.
type Node struct {
	name     string
	path     string
	record   *contrib.Record
	children map[string]*Node
	file     bool
}

// Build creates the tree of the given files. Paths are slash separated and
// relative to the repository root.
func Build(files contrib.Files) *Node {
	root := newNode(RootName, "")

	for _, path := range files.Paths() {
		root.insert(path, files[path])
	}

	return root
}

func newNode(name, path string) *Node {
	return &Node{
		name:     name,
		path:     path,
		record:   contrib.New(),
		children: make(map[string]*Node),
	}
}

func (n *Node) insert(path string, rec *contrib.Record) {
	node := n
	node.record.Merge(rec.Clone())

	segments := strings.Split(path, "/")

	for i, seg := range segments {
		child, ok := node.children[seg]
		if !ok {
			child = newNode(seg, strings.Join(segments[:i+1], "/"))
			node.children[seg] = child
		}

		child.record.Merge(rec.Clone())
		node = child
	}

	node.file = true
}

// Name returns the last path segment, or RootName for the root.
func (n *Node) Name() string { return n.name }

// Path returns the slash separated path from the root; empty for the root.
func (n *Node) Path() string { return n.path }

// IsFile reports whether the node is a file.
func (n *Node) IsFile() bool { return n.file }

// Record returns the aggregated record. Callers must not modify it.
func (n *Node) Record() *contrib.Record { return n.record }

// Len returns the number of direct children.
func (n *Node) Len() int { return len(n.children) }

// Children returns the direct children sorted by name.
func (n *Node) Children() []*Node {
	names := slices.Sorted(maps.Keys(n.children))
	out := make([]*Node, len(names))

	for i, name := range names {
		out[i] = n.children[name]
	}

	return out
}

// Find returns the node at the slash separated path. The empty path and "/"
// return the root.
func (n *Node) Find(path string) (*Node, bool) {
	path = strings.Trim(path, "/")
	if path == "" {
		return n, true
	}

	node := n

	for seg := range strings.SplitSeq(path, "/") {
		child, ok := node.children[seg]
		if !ok {
			return nil, false
		}

		node = child
	}

	return node, true
}

// Walk visits the node and its descendants depth first, children in name
// order. Returning false from fn skips the children of that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if !fn(n, depth) {
		return
	}

	for _, child := range n.Children() {
		child.walk(fn, depth+1)
	}
}

// RatioBy returns the share of the node's lines written by ids.
func (n *Node) RatioBy(ids []string) float64 {
	return n.record.RatioBy(ids)
}

// LinesBy returns the node's lines written by ids.
func (n *Node) LinesBy(ids []string) int {
	return n.record.LinesBy(ids)
}

// TopAuthors returns the n largest contributors of the node.
func (n *Node) TopAuthors(limit int) []contrib.AuthorShare {
	return n.record.TopAuthors(limit)
}
