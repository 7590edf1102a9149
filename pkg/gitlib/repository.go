package gitlib

import (
	"errors"
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// Sentinel errors for repository level failures.
var (
	// ErrRemoteNotSupported is returned when a remote repository URI is provided.
	ErrRemoteNotSupported = errors.New("remote repositories not supported")
	// ErrNoDefaultSignature is returned when user.email is not configured.
	ErrNoDefaultSignature = errors.New("no default signature configured")
)

// Repository wraps a libgit2 repository.
// A Repository is not safe for concurrent use; see HandlePool.
type Repository struct {
	repo *git2go.Repository
	path string

	mailmap       *git2go.Mailmap
	mailmapLoaded bool
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// DiscoverRepository finds the repository containing start, walking up parent
// directories, and opens it.
func DiscoverRepository(start string) (*Repository, error) {
	if strings.Contains(start, "://") {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotSupported, start)
	}

	gitDir, err := git2go.Discover(start, false, nil)
	if err != nil {
		return nil, fmt.Errorf("discover repository from %s: %w", start, err)
	}

	return OpenRepository(gitDir)
}

// Path returns the path the repository was opened with.
func (r *Repository) Path() string {
	return r.path
}

// Workdir returns the working directory, or the git directory for bare repositories.
func (r *Repository) Workdir() string {
	if wd := r.repo.Workdir(); wd != "" {
		return wd
	}

	return r.repo.Path()
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.mailmap != nil {
		r.mailmap.Free()
		r.mailmap = nil
	}

	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// HeadCommit returns the commit HEAD points to.
func (r *Repository) HeadCommit() (*Commit, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	return r.LookupCommit(head)
}

// DefaultSignature returns the signature configured by user.name and user.email.
func (r *Repository) DefaultSignature() (Signature, error) {
	sig, err := r.repo.DefaultSignature()
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrNoDefaultSignature, err)
	}

	if sig == nil || sig.Email == "" {
		return Signature{}, ErrNoDefaultSignature
	}

	return signatureFromNative(sig), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree: %w", err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// LookupBlob returns the contents of the blob with the given hash.
func (r *Repository) LookupBlob(hash Hash) ([]byte, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}
	defer blob.Free()

	contents := blob.Contents()
	data := make([]byte, len(contents))
	copy(data, contents)

	return data, nil
}

// ResolveSignature maps a signature through the repository's .mailmap.
// The signature is returned unchanged when there is no mailmap or no entry.
func (r *Repository) ResolveSignature(sig Signature) Signature {
	mm := r.loadMailmap()
	if mm == nil || sig.IsEmpty() {
		return sig
	}

	name, email, err := mm.Resolve(sig.Name, sig.Email)
	if err != nil {
		return sig
	}

	return Signature{Name: name, Email: email, When: sig.When}
}

func (r *Repository) loadMailmap() *git2go.Mailmap {
	if r.mailmapLoaded {
		return r.mailmap
	}

	r.mailmapLoaded = true

	mm, err := git2go.MailmapFromRepository(r.repo)
	if err != nil {
		return nil
	}

	r.mailmap = mm

	return mm
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}
