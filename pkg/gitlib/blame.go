package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// BlameHunk is a run of consecutive lines last touched by the same commit.
type BlameHunk struct {
	Lines  int
	Commit Hash
	// Signature is the author of Commit. It is empty when libgit2 could not
	// produce one.
	Signature Signature
}

// BlameFile blames path at HEAD and returns its hunks in line order.
func (r *Repository) BlameFile(path string) ([]BlameHunk, error) {
	opts, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("get blame options: %w", err)
	}

	blame, err := r.repo.BlameFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", path, err)
	}
	defer blame.Free()

	count := blame.HunkCount()
	hunks := make([]BlameHunk, 0, count)

	for i := range count {
		native, hunkErr := blame.HunkByIndex(i)
		if hunkErr != nil {
			return nil, fmt.Errorf("blame %s hunk %d: %w", path, i, hunkErr)
		}

		hunks = append(hunks, BlameHunk{
			Lines:     int(native.LinesInHunk),
			Commit:    HashFromOid(native.FinalCommitId),
			Signature: signatureFromNative(native.FinalSignature),
		})
	}

	return hunks, nil
}
