package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// initialDeltaCapacity is the initial capacity for delta result slices.
const initialDeltaCapacity = 16

// DeltaStatus is the kind of change a FileDelta describes.
type DeltaStatus int

const (
	// DeltaOther covers statuses that carry no content change (unmodified, ignored, ...).
	DeltaOther DeltaStatus = iota
	// DeltaAdded means the file was created.
	DeltaAdded
	// DeltaDeleted means the file was removed.
	DeltaDeleted
	// DeltaModified means the file content changed in place.
	DeltaModified
	// DeltaRenamed means the file moved, possibly with content changes.
	DeltaRenamed
	// DeltaCopied means the file was copied from another path.
	DeltaCopied
	// DeltaTypeChanged means the entry type changed (e.g. file to symlink).
	DeltaTypeChanged
)

// Hunk holds the line counts of one contiguous changed region.
type Hunk struct {
	OldLines int
	NewLines int
}

// FileDelta is one file-level change between two trees.
type FileDelta struct {
	Status  DeltaStatus
	OldPath string
	NewPath string
	Binary  bool
	Hunks   []Hunk
}

// OldExists reports whether the old side of the delta exists.
func (d FileDelta) OldExists() bool {
	return d.Status != DeltaAdded && d.Status != DeltaOther
}

// NewExists reports whether the new side of the delta exists.
func (d FileDelta) NewExists() bool {
	return d.Status != DeltaDeleted && d.Status != DeltaOther
}

// DiffOptions configures DiffTrees.
type DiffOptions struct {
	// ContextLines is the number of unchanged lines around each hunk.
	ContextLines int
	// FindRenames enables similarity detection so moved files show up as renames.
	FindRenames bool
}

// DiffTrees computes the file deltas between two trees. A nil oldTree diffs
// against the empty tree.
func (r *Repository) DiffTrees(oldTree, newTree *Tree, opts DiffOptions) ([]FileDelta, error) {
	diffOpts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	diffOpts.ContextLines = uint32(max(opts.ContextLines, 0))

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &diffOpts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	defer diff.Free()

	if opts.FindRenames {
		findOpts, findErr := git2go.DefaultDiffFindOptions()
		if findErr != nil {
			return nil, fmt.Errorf("get diff find options: %w", findErr)
		}

		findOpts.Flags = git2go.DiffFindRenames

		findErr = diff.FindSimilar(&findOpts)
		if findErr != nil {
			return nil, fmt.Errorf("find similar: %w", findErr)
		}
	}

	deltas := make([]FileDelta, 0, initialDeltaCapacity)

	err = diff.ForEach(func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		deltas = append(deltas, fileDeltaFromNative(delta))
		idx := len(deltas) - 1

		return func(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			deltas[idx].Hunks = append(deltas[idx].Hunks, Hunk{
				OldLines: hunk.OldLines,
				NewLines: hunk.NewLines,
			})

			return nil, nil
		}, nil
	}, git2go.DiffDetailHunks)
	if err != nil {
		return nil, fmt.Errorf("diff foreach: %w", err)
	}

	return deltas, nil
}

// DiffCommit diffs a commit against its first parent, or against the empty
// tree for a root commit.
func (r *Repository) DiffCommit(commit *Commit, opts DiffOptions) ([]FileDelta, error) {
	newTree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	oldTree, err := commit.BaseTree()
	if err != nil {
		return nil, err
	}

	if oldTree != nil {
		defer oldTree.Free()
	}

	return r.DiffTrees(oldTree, newTree, opts)
}

func fileDeltaFromNative(delta git2go.DiffDelta) FileDelta {
	return FileDelta{
		Status:  statusFromNative(delta.Status),
		OldPath: delta.OldFile.Path,
		NewPath: delta.NewFile.Path,
		Binary:  delta.Flags&git2go.DiffFlagBinary != 0,
	}
}

func statusFromNative(status git2go.Delta) DeltaStatus {
	switch status {
	case git2go.DeltaAdded:
		return DeltaAdded
	case git2go.DeltaDeleted:
		return DeltaDeleted
	case git2go.DeltaModified:
		return DeltaModified
	case git2go.DeltaRenamed:
		return DeltaRenamed
	case git2go.DeltaCopied:
		return DeltaCopied
	case git2go.DeltaTypeChange:
		return DeltaTypeChanged
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return DeltaOther
	}

	return DeltaOther
}
