package scope_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib/gitlibtest"
	"github.com/Sumatoshi-tech/gitshare/pkg/scope"
)

func TestMatchDirectory(t *testing.T) {
	t.Parallel()

	f, err := scope.New(scope.Options{Dir: "src/"})
	require.NoError(t, err)

	assert.True(t, f.Match("src/main.go", nil))
	assert.True(t, f.Match("src/pkg/a.go", nil))
	assert.False(t, f.Match("srcs/main.go", nil))
	assert.False(t, f.Match("README.md", nil))
}

func TestMatchSkipVendor(t *testing.T) {
	t.Parallel()

	f, err := scope.New(scope.Options{SkipVendor: true})
	require.NoError(t, err)

	assert.False(t, f.Match("vendor/github.com/x/y.go", nil))
	assert.False(t, f.Match("package-lock.json", nil))
	assert.False(t, f.Match("web/node_modules/react/index.js", nil))
	assert.True(t, f.Match("cmd/main.go", nil))

	all, err := scope.New(scope.Options{})
	require.NoError(t, err)
	assert.True(t, all.Match("vendor/github.com/x/y.go", nil))
}

func TestMatchCustomBlacklist(t *testing.T) {
	t.Parallel()

	f, err := scope.New(scope.Options{SkipVendor: true, BlacklistedPrefixes: []string{"generated/"}})
	require.NoError(t, err)

	assert.False(t, f.Match("generated/api.pb.go", nil))
	assert.True(t, f.Match("api/server.go", nil))
}

func TestMatchLanguages(t *testing.T) {
	t.Parallel()

	f, err := scope.New(scope.Options{Languages: []string{" Go "}})
	require.NoError(t, err)

	assert.True(t, f.Match("main.go", nil))
	assert.False(t, f.Match("README.md", nil))
	assert.False(t, f.Match("unknown", nil))

	all, err := scope.New(scope.Options{Languages: []string{"go", "all"}})
	require.NoError(t, err)
	assert.True(t, all.Match("README.md", nil))
}

func TestMatchLanguageFromContents(t *testing.T) {
	t.Parallel()

	f, err := scope.New(scope.Options{Languages: []string{"python"}})
	require.NoError(t, err)

	called := false
	contents := func() []byte {
		called = true

		return []byte("#!/usr/bin/env python\nprint('hi')\n")
	}

	assert.True(t, f.Match("tool", contents))
	assert.True(t, called)
}

func TestMatchWhitelist(t *testing.T) {
	t.Parallel()

	f, err := scope.New(scope.Options{Whitelist: `_test\.go$`})
	require.NoError(t, err)

	assert.True(t, f.Match("pkg/a_test.go", nil))
	assert.False(t, f.Match("pkg/a.go", nil))

	_, err = scope.New(scope.Options{Whitelist: "("})
	require.ErrorIs(t, err, scope.ErrInvalidWhitelist)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tr := gitlibtest.NewRepo(t)
	tr.Write("src/main.go", "package main\n")
	tr.Write("src/vendor/lib/lib.go", "package lib\n")
	tr.Write("docs/guide.md", "# guide\n")
	tr.Commit("init", gitlibtest.Author{Name: "A", Email: "a@x"}, time.Unix(1_700_000_000, 0))

	f, err := scope.New(scope.Options{Dir: "src", SkipVendor: true})
	require.NoError(t, err)

	paths, err := f.Select(tr.Open())
	require.NoError(t, err)

	assert.Equal(t, []string{"src/main.go"}, paths)
}

func TestRelativeDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	rel, err := scope.RelativeDir(root, filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "a/b", rel)

	rel, err = scope.RelativeDir(root, root)
	require.NoError(t, err)
	assert.Empty(t, rel)

	_, err = scope.RelativeDir(filepath.Join(root, "a"), root)
	require.ErrorIs(t, err, scope.ErrOutsideRepository)

	_, err = scope.RelativeDir(root, filepath.Join(root, "missing"))
	require.Error(t, err)
}

func TestRelativeDirFollowsSymlinks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real", "pkg"), 0o755))

	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), link))

	rel, err := scope.RelativeDir(filepath.Join(root, "real"), filepath.Join(link, "pkg"))
	require.NoError(t, err)
	assert.Equal(t, "pkg", rel)
}
