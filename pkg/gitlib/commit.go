package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrParentNotFound is returned when a commit's first parent cannot be loaded.
var ErrParentNotFound = errors.New("parent commit not found")

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the raw author signature, before mailmap resolution.
func (c *Commit) Author() Signature {
	return signatureFromNative(c.commit.Author())
}

// Committer returns the committer signature. Its time orders history and is
// compared against max-age cutoffs.
func (c *Commit) Committer() Signature {
	return signatureFromNative(c.commit.Committer())
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount())
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return c.NumParents() > 1
}

// Ref returns the lightweight view used by history walks.
func (c *Commit) Ref() CommitRef {
	return CommitRef{
		Hash:       c.Hash(),
		NumParents: c.NumParents(),
		When:       c.Committer().When,
	}
}

// Tree returns the snapshot recorded by the commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree %s: %w", c.Hash().Short(), err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// BaseTree returns the tree the commit's changes are measured against: the
// first parent's snapshot, or nil for a root commit, which is then diffed
// against the empty tree.
func (c *Commit) BaseTree() (*Tree, error) {
	if c.NumParents() == 0 {
		return nil, nil //nolint:nilnil // a root commit has no base tree
	}

	parent := c.commit.Parent(0)
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrParentNotFound, c.Hash().Short())
	}
	defer parent.Free()

	tree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("get parent tree of %s: %w", c.Hash().Short(), err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}
