package attribution_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib/gitlibtest"
)

var (
	alice = gitlibtest.Author{Name: "Alice", Email: "Alice@Example.com"}
	bob   = gitlibtest.Author{Name: "Bob", Email: "bob@example.com"}
)

const (
	aliceID = "alice@example.com"
	bobID   = "bob@example.com"
)

func baseTime() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// renameScenario is a three commit history: alice adds f.txt with 10 lines,
// bob rewrites lines 3 to 6 and renames it to g.txt, alice appends 2 lines.
type renameScenario struct {
	repo    *gitlibtest.Repo
	commits []gitlib.Hash
}

func newRenameScenario(t *testing.T) *renameScenario {
	t.Helper()

	tr := gitlibtest.NewRepo(t)

	original := splitLines(gitlibtest.Lines("alice", 10))
	tr.Write("f.txt", strings.Join(original, "\n")+"\n")
	c1 := tr.Commit("add f", alice, baseTime())

	rewritten := append([]string(nil), original...)
	copy(rewritten[2:6], splitLines(gitlibtest.Lines("bob", 4)))

	tr.Rename("f.txt", "g.txt")
	tr.Write("g.txt", strings.Join(rewritten, "\n")+"\n")
	c2 := tr.Commit("rewrite and rename", bob, baseTime().Add(24*time.Hour))

	appended := append(rewritten, splitLines(gitlibtest.Lines("alice late", 2))...)
	tr.Write("g.txt", strings.Join(appended, "\n")+"\n")
	c3 := tr.Commit("append", alice, baseTime().Add(48*time.Hour))

	return &renameScenario{repo: tr, commits: []gitlib.Hash{c1, c2, c3}}
}
