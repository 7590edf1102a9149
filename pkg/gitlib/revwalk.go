package gitlib

import (
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// CommitRef is the lightweight view of a walked commit.
type CommitRef struct {
	Hash       Hash
	NumParents int
	// When is the committer time.
	When time.Time
}

// IsMerge reports whether the commit has more than one parent.
func (c CommitRef) IsMerge() bool {
	return c.NumParents > 1
}

// History returns every commit reachable from HEAD, oldest first.
func (r *Repository) History() ([]CommitRef, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	err = walk.PushHead()
	if err != nil {
		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	// Topological order guarantees parents are visited before children once reversed.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	var refs []CommitRef

	oid := new(git2go.Oid)

	for walk.Next(oid) == nil {
		commit, lookupErr := r.LookupCommit(HashFromOid(oid))
		if lookupErr != nil {
			continue
		}

		refs = append(refs, commit.Ref())

		commit.Free()
	}

	reverseCommits(refs)

	return refs, nil
}

// reverseCommits reverses the order of commits (to oldest first).
func reverseCommits(commits []CommitRef) {
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
}
