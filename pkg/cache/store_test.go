package cache_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitshare/pkg/cache"
)

const testKey = "0123456789abcdef0123456789abcdef01234567"

type entry struct {
	Author string         `json:"author"`
	Lines  map[string]int `json:"lines"`
}

func TestStoreSaveLoad(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	in := entry{Author: "alice@example.com", Lines: map[string]int{"a.go": 10, "b/c.go": 3}}
	require.NoError(t, store.Save(testKey, in))

	var out entry
	require.NoError(t, store.Load(testKey, &out))
	assert.Equal(t, in, out)

	_, err = os.Stat(filepath.Join(store.Dir(), "01", testKey+".json.lz4"))
	require.NoError(t, err)

	hits, misses := store.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Zero(t, misses)
}

func TestStoreMiss(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	var out entry
	require.ErrorIs(t, store.Load(testKey, &out), cache.ErrCacheMiss)

	_, misses := store.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestStoreCompressesRepetitiveEntries(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	lines := make(map[string]int)
	for i := range 200 {
		lines["src/pkg/module/very/long/path/file_"+strings.Repeat("x", i%7)+".go"] = i
	}

	in := entry{Author: strings.Repeat("a", 512), Lines: lines}
	require.NoError(t, store.Save(testKey, in))

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(store.Dir(), "01", testKey+".json.lz4"))
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(raw)))

	var out entry
	require.NoError(t, store.Load(testKey, &out))
	assert.Equal(t, in, out)
}

func TestStoreOverwrite(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(testKey, entry{Author: "old"}))
	require.NoError(t, store.Save(testKey, entry{Author: "new"}))

	var out entry
	require.NoError(t, store.Load(testKey, &out))
	assert.Equal(t, "new", out.Author)
}

func TestStoreCorruptEntry(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	path := filepath.Join(store.Dir(), "01", testKey+".json.lz4")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff, 0xff, 0x00, 0x01, 0x02}, 0o644))

	var out entry
	require.ErrorIs(t, store.Load(testKey, &out), cache.ErrCorruptEntry)

	require.NoError(t, os.WriteFile(path, []byte{0x01}, 0o644))
	require.ErrorIs(t, store.Load(testKey, &out), cache.ErrCorruptEntry)
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "ab", "../etc/passwd", "a/b/c", ".hidden"} {
		require.ErrorIs(t, store.Save(key, entry{}), cache.ErrInvalidKey, key)
		require.ErrorIs(t, store.Load(key, &entry{}), cache.ErrInvalidKey, key)
	}
}

func TestStoreConcurrentUse(t *testing.T) {
	t.Parallel()

	store, err := cache.Open(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			key := testKey[:39] + string(rune('0'+i))
			assert.NoError(t, store.Save(key, entry{Author: key}))

			var out entry
			assert.NoError(t, store.Load(key, &out))
			assert.Equal(t, key, out.Author)
		}()
	}

	wg.Wait()
}

func TestDefaultDir(t *testing.T) {
	t.Parallel()

	dir, err := cache.DefaultDir()
	if err != nil {
		t.Skip("no user cache dir in this environment")
	}

	assert.Equal(t, "gitshare", filepath.Base(dir))
}
