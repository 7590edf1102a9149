// Package gitlibtest builds throwaway git repositories for tests.
package gitlibtest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
)

// Author identifies who makes a commit.
type Author struct {
	Name  string
	Email string
}

// Repo is a non-bare repository in a temp directory.
type Repo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

// NewRepo initializes an empty repository that is removed when the test ends.
func NewRepo(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &Repo{t: t, path: dir, native: repo}
}

// Path returns the working directory.
func (r *Repo) Path() string {
	return r.path
}

// Open opens a gitlib handle on the repository and frees it with the test.
func (r *Repo) Open() *gitlib.Repository {
	r.t.Helper()

	repo, err := gitlib.OpenRepository(r.path)
	require.NoError(r.t, err)

	r.t.Cleanup(repo.Free)

	return repo
}

// SetIdentity writes user.name and user.email into the repository config.
func (r *Repo) SetIdentity(name, email string) {
	r.t.Helper()

	cfg, err := r.native.Config()
	require.NoError(r.t, err)

	defer cfg.Free()

	require.NoError(r.t, cfg.SetString("user.name", name))
	require.NoError(r.t, cfg.SetString("user.email", email))
}

// Write creates or overwrites a file in the working directory.
func (r *Repo) Write(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.path, filepath.FromSlash(name))

	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

// Remove deletes a file from the working directory.
func (r *Repo) Remove(name string) {
	r.t.Helper()

	require.NoError(r.t, os.Remove(filepath.Join(r.path, filepath.FromSlash(name))))
}

// Rename moves a file inside the working directory.
func (r *Repo) Rename(from, to string) {
	r.t.Helper()

	dst := filepath.Join(r.path, filepath.FromSlash(to))

	require.NoError(r.t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(r.t, os.Rename(filepath.Join(r.path, filepath.FromSlash(from)), dst))
}

// Commit stages the whole working tree and commits it on HEAD.
func (r *Repo) Commit(message string, author Author, when time.Time) gitlib.Hash {
	r.t.Helper()

	var parents []gitlib.Hash

	head, err := r.native.Head()
	if err == nil {
		parents = append(parents, gitlib.HashFromOid(head.Target()))

		head.Free()
	}

	return r.commit("HEAD", message, author, when, parents)
}

// CommitSide stages the whole working tree and commits it on top of parent
// without moving HEAD, as on a side branch.
func (r *Repo) CommitSide(message string, author Author, when time.Time, parent gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	return r.commit("", message, author, when, []gitlib.Hash{parent})
}

// CommitMerge stages the whole working tree and commits it on HEAD with the
// given parents. The first parent must be the current HEAD commit; the staged
// tree is the merge result, including any edits made while resolving it.
func (r *Repo) CommitMerge(message string, author Author, when time.Time, parents ...gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	require.GreaterOrEqual(r.t, len(parents), 2, "a merge needs at least two parents")

	return r.commit("HEAD", message, author, when, parents)
}

func (r *Repo) commit(ref, message string, author Author, when time.Time, parentHashes []gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	index, err := r.native.Index()
	require.NoError(r.t, err)

	defer index.Free()

	require.NoError(r.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(r.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(r.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(r.t, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.t, err)

	defer tree.Free()

	parents := make([]*git2go.Commit, 0, len(parentHashes))

	for _, hash := range parentHashes {
		parent, lookupErr := r.native.LookupCommit(hash.ToOid())
		require.NoError(r.t, lookupErr)

		parents = append(parents, parent)
	}

	defer func() {
		for _, parent := range parents {
			parent.Free()
		}
	}()

	sig := &git2go.Signature{Name: author.Name, Email: author.Email, When: when}

	oid, err := r.native.CreateCommit(ref, sig, sig, message, tree, parents...)
	require.NoError(r.t, err)

	return gitlib.HashFromOid(oid)
}

// Lines renders n distinct lines tagged with prefix. The lines are long enough
// for rename detection to pair files that share them.
func Lines(prefix string, n int) string {
	var sb strings.Builder

	for i := range n {
		sb.WriteString(prefix)
		sb.WriteString(" line number ")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(" of the shared fixture body\n")
	}

	return sb.String()
}
