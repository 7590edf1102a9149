package attribution

import (
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitshare/pkg/identity"
)

// CommitDelta is what one commit changed, before identity resolution: the
// raw author signature, the changed line count per post-change path and the
// rename edges. It depends only on the commit, so it can be cached.
type CommitDelta struct {
	Hash    string                  `json:"hash"`
	Author  string                  `json:"author_name"`
	Email   string                  `json:"author_email"`
	When    time.Time               `json:"when"`
	Lines   map[string]int          `json:"lines"`
	Renames map[string]RenameTarget `json:"renames,omitempty"`
}

// Signature returns the raw author signature.
func (d *CommitDelta) Signature() gitlib.Signature {
	return gitlib.Signature{Name: d.Author, Email: d.Email, When: d.When}
}

// DiffCommit diffs the commit against its first parent, or the empty tree for
// a root commit, with rename detection. Every hunk of a delta whose new side
// exists counts max(old, new) lines at the new path. Renames record
// old->new and deletions record old->removed.
func DiffCommit(repo *gitlib.Repository, hash gitlib.Hash) (*CommitDelta, error) {
	commit, err := repo.LookupCommit(hash)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	deltas, err := repo.DiffCommit(commit, gitlib.DiffOptions{ContextLines: 0, FindRenames: true})
	if err != nil {
		return nil, fmt.Errorf("diff commit %s: %w", hash.Short(), err)
	}

	author := commit.Author()
	out := &CommitDelta{
		Hash:    hash.String(),
		Author:  author.Name,
		Email:   author.Email,
		When:    commit.Committer().When,
		Lines:   make(map[string]int),
		Renames: make(map[string]RenameTarget),
	}

	for _, delta := range deltas {
		switch delta.Status {
		case gitlib.DeltaRenamed:
			out.Renames[delta.OldPath] = MovedTo(delta.NewPath)
		case gitlib.DeltaDeleted:
			out.Renames[delta.OldPath] = Removal()

			continue
		case gitlib.DeltaOther:
			continue
		case gitlib.DeltaAdded, gitlib.DeltaModified, gitlib.DeltaCopied, gitlib.DeltaTypeChanged:
		}

		if lines := changedLines(delta.Hunks); lines > 0 {
			out.Lines[delta.NewPath] += lines
		}
	}

	return out, nil
}

func changedLines(hunks []gitlib.Hunk) int {
	total := 0

	for _, h := range hunks {
		total += max(h.OldLines, h.NewLines)
	}

	return total
}

// Partial resolves the commit author and turns the delta into a one-commit
// partial. When the author has no identity the partial carries only the
// renames and ok is false.
func (d *CommitDelta) Partial(resolver *identity.Resolver, mm identity.Mailmapper) (p *Partial, ok bool) {
	p = NewPartial()

	for from, to := range d.Renames {
		p.Rename(from, to)
	}

	id, ok := resolver.Resolve(mm, d.Signature())
	if !ok {
		return p, false
	}

	for path, n := range d.Lines {
		p.AddLines(path, id, n)
	}

	return p, true
}

// Expired reports whether a commit made at when is older than maxAge at now.
// A zero maxAge never expires.
func Expired(when, now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(when) > maxAge
}
