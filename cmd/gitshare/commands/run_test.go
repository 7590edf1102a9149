package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gitshare/pkg/config"
	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib/gitlibtest"
	"github.com/Sumatoshi-tech/gitshare/pkg/report"
)

var (
	alice = gitlibtest.Author{Name: "Alice", Email: "alice@example.com"}
	bob   = gitlibtest.Author{Name: "Bob", Email: "bob@example.com"}
)

// newRepo builds a.txt by alice, b/c.txt half by alice and half by bob, and
// b/d.txt by bob.
func newRepo(t *testing.T) *gitlibtest.Repo {
	t.Helper()

	when := time.Date(2024, time.February, 5, 8, 0, 0, 0, time.UTC)

	tr := gitlibtest.NewRepo(t)
	tr.Write("a.txt", gitlibtest.Lines("alice a", 3))
	tr.Write("b/c.txt", gitlibtest.Lines("alice c", 2))
	tr.Commit("first", alice, when)

	tr.Write("b/c.txt", gitlibtest.Lines("alice c", 2)+gitlibtest.Lines("bob c", 2))
	tr.Write("b/d.txt", gitlibtest.Lines("bob d", 4))
	tr.Commit("second", bob, when.Add(time.Hour))

	return tr
}

// emptyConfig keeps tests independent of a .gitshare.yaml in $HOME.
func emptyConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gitshare.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := NewRootCommand()

	var outBuf, errBuf bytes.Buffer

	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)

	err = root.Execute()

	return outBuf.String(), errBuf.String(), err
}

func TestRunFlatPercentage(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	out, _, err := execute(t, tr.Path(), "--config", emptyConfig(t), "--no-progress", "--no-color",
		"--email", "Alice@Example.com", "--flat")
	require.NoError(t, err)

	assert.Equal(t, "100.0% - a.txt\n 50.0% - b/c.txt\n", out)
}

func TestRunTreePercentage(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	out, _, err := execute(t, "run", tr.Path(), "--config", emptyConfig(t), "--no-progress", "--no-color",
		"--email", "alice@example.com")
	require.NoError(t, err)

	want := strings.Join([]string{
		"/ - 45.5%",
		"├── a.txt - 100.0%",
		"└── b - 33.3%",
		"    └── c.txt - 50.0%",
		"",
	}, "\n")
	assert.Equal(t, want, out)
}

func TestRunDirRelativeToWorkingTree(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	out, _, err := execute(t, tr.Path(), "--config", emptyConfig(t), "--no-progress", "--no-color",
		"--email", "bob@example.com", "--flat", "--dir", filepath.Join(tr.Path(), "b"))
	require.NoError(t, err)

	assert.Equal(t, "100.0% - b/d.txt\n 50.0% - b/c.txt\n", out)
}

func TestRunShowAuthorsIgnoreUser(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	out, _, err := execute(t, tr.Path(), "--config", emptyConfig(t), "--no-progress", "--no-color",
		"--show-authors", "--flat", "--ignore-user", "bob@example.com")
	require.NoError(t, err)

	assert.Equal(t, "a.txt - (alice@example.com: 100.0%)\nb/c.txt - (alice@example.com: 100.0%)\n", out)
}

func TestRunJSONReportValidates(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	out, _, err := execute(t, tr.Path(), "--config", emptyConfig(t), "--no-progress",
		"--email", "bob@example.com", "--format", "json", "--overwritten")
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))

	assert.Equal(t, "overwritten", rep.Mode)
	assert.Equal(t, []string{"bob@example.com"}, rep.Targets)
	assert.Equal(t, 11, rep.Total)
	require.Len(t, rep.Files, 3)
	assert.Len(t, rep.Files[1].Authors, 2)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))

	valid, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, valid, "Report is valid")
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	cfgPath := filepath.Join(t.TempDir(), "gitshare.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
attribution:
  emails: [alice@example.com]
output:
  format: yaml
  flat: true
  no_progress: true
`), 0o600))

	out, _, err := execute(t, tr.Path(), "--config", cfgPath)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "direct", rep.Mode)
	assert.Nil(t, rep.Tree)
	assert.Equal(t, []string{"alice@example.com"}, rep.Targets)

	// Flags override the file.
	out, _, err = execute(t, tr.Path(), "--config", cfgPath, "--format", "text", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, "100.0% - a.txt\n 50.0% - b/c.txt\n", out)
}

func TestRunCacheAndProgress(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)
	cacheDir := t.TempDir()

	for range 2 {
		out, stderr, err := execute(t, tr.Path(), "--config", emptyConfig(t), "--no-color", "-v",
			"--email", "alice@example.com", "--overwritten", "--cache", "--cache-dir", cacheDir, "--flat")
		require.NoError(t, err)

		assert.Equal(t, "100.0% - a.txt\n 50.0% - b/c.txt\n", out)
		assert.Contains(t, stderr, "Walking history")
		assert.Contains(t, stderr, "delta cache")
	}

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunConflictingFlags(t *testing.T) {
	t.Parallel()

	tr := newRepo(t)

	_, _, err := execute(t, tr.Path(), "--config", emptyConfig(t), "--show-authors", "--email", "a@example.com")
	require.Error(t, err)

	_, _, err = execute(t, tr.Path(), "--config", emptyConfig(t), "--flat", "--max-depth", "1")
	require.Error(t, err)

	_, _, err = execute(t, tr.Path(), "--config", emptyConfig(t), "--max-authors", "1", "--reverse")
	require.Error(t, err)

	_, _, err = execute(t, tr.Path(), "--config", emptyConfig(t), "--max-authors", "1", "--flat")
	require.ErrorIs(t, err, config.ErrConflictingOptions)

	// A show_authors config file satisfies the requirement.
	cfgPath := filepath.Join(t.TempDir(), "gitshare.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  show_authors: true\n  no_progress: true\n"), 0o600))

	out, _, err := execute(t, tr.Path(), "--config", cfgPath, "--no-color", "--flat", "--max-authors", "1")
	require.NoError(t, err)
	assert.Equal(t, "a.txt - (alice@example.com: 100.0%)\nb/c.txt - (alice@example.com: 50.0%)\nb/d.txt - (bob@example.com: 100.0%)\n", out)

	_, _, err = execute(t, tr.Path(), "--config", emptyConfig(t), "--format", "xml", "--email", "a@example.com")
	require.ErrorIs(t, err, config.ErrInvalidFormat)

	_, _, err = execute(t, tr.Path(), "--config", emptyConfig(t), "--max-age", "someday", "--email", "a@example.com")
	require.ErrorIs(t, err, config.ErrInvalidMaxAge)
}

func TestValidateRejectsBadReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode": "sideways"}`), 0o600))

	out, _, err := execute(t, "validate", path)
	require.ErrorIs(t, err, ErrInvalidReport)
	assert.Equal(t, exitCodeValidationFailure, ExitCode(err))
	assert.Contains(t, out, "Report validation failed")

	schema, _, err := execute(t, "validate", "--schema")
	require.NoError(t, err)
	assert.Contains(t, schema, "\"$schema\"")
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gitshare "))
	assert.Equal(t, exitCodeFailure, ExitCode(assert.AnError))
}

func TestTrackProgress(t *testing.T) {
	t.Parallel()

	var done atomic.Int64

	var buf bytes.Buffer

	stop := trackProgress(&buf, "Blaming files", func() (int64, int64) {
		return done.Load(), 4
	})

	done.Store(4)
	stop()

	assert.Contains(t, buf.String(), "Blaming files")
}

func TestMCPCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := NewMCPCommand()
	assert.Equal(t, "mcp", cmd.Use)

	for _, name := range []string{"debug", "metrics-addr", "workers", "cache", "cache-dir"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
