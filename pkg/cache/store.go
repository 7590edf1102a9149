// Package cache persists per-commit attribution deltas on disk. Commits are
// immutable, so an entry keyed by commit hash never goes stale.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/gitshare/pkg/units"
)

const (
	// layoutVersion is bumped whenever the entry encoding changes.
	layoutVersion = "v1"

	// entryExt is the file extension of cache entries.
	entryExt = ".json.lz4"

	// sizeHeaderLen is the length of the uncompressed-size prefix.
	sizeHeaderLen = 4

	// maxEntrySize bounds the uncompressed size accepted when loading.
	maxEntrySize = 64 * units.MiB

	// shardLen is the number of key characters used for the shard directory.
	shardLen = 2

	dirPerm  = 0o755
	filePerm = 0o644
)

// Sentinel errors for cache lookups.
var (
	// ErrCacheMiss is returned by Load when no entry exists for the key.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCorruptEntry is returned when an entry cannot be decoded.
	ErrCorruptEntry = errors.New("corrupt cache entry")
	// ErrInvalidKey is returned for keys that cannot name a file.
	ErrInvalidKey = errors.New("invalid cache key")

	errShortEntry    = errors.New("short entry")
	errEntryTooLarge = errors.New("entry exceeds size limit")
)

// Store is a directory of LZ4-compressed JSON entries laid out as
// <dir>/v1/<key[:2]>/<key>.json.lz4. It is safe for concurrent use.
type Store struct {
	dir string

	hits   atomic.Int64
	misses atomic.Int64
}

// Open creates the cache directory if needed and returns a store over it.
func Open(dir string) (*Store, error) {
	root := filepath.Join(dir, layoutVersion)

	err := os.MkdirAll(root, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Store{dir: root}, nil
}

// DefaultDir returns the per-user cache directory for gitshare.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}

	return filepath.Join(base, "gitshare"), nil
}

// Dir returns the versioned root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Load decodes the entry for key into v.
func (s *Store) Load(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.misses.Add(1)

		return ErrCacheMiss
	}

	if err != nil {
		return fmt.Errorf("read cache entry %s: %w", key, err)
	}

	data, err := decompress(raw)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrCorruptEntry, key, err)
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrCorruptEntry, key, err)
	}

	s.hits.Add(1)

	return nil
}

// Save encodes v and stores it under key, replacing any previous entry.
func (s *Store) Save(key string, v any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	err = os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return fmt.Errorf("create cache shard: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache entry %s: %w", key, err)
	}

	_, err = tmp.Write(compress(data))

	closeErr := tmp.Close()
	if err = errors.Join(err, closeErr); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write cache entry %s: %w", key, err)
	}

	err = os.Chmod(tmp.Name(), filePerm)
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("store cache entry %s: %w", key, err)
	}

	return nil
}

// Stats returns the number of hits and misses since the store was opened.
func (s *Store) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

func (s *Store) path(key string) (string, error) {
	if len(key) <= shardLen || filepath.Base(key) != key || key[0] == '.' {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(s.dir, key[:shardLen], key+entryExt), nil
}

// compress prefixes the LZ4 block with the uncompressed length.
func compress(data []byte) []byte {
	out := make([]byte, sizeHeaderLen+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out, uint32(len(data)))

	written, err := lz4.CompressBlock(data, out[sizeHeaderLen:], nil)
	if err != nil || written == 0 {
		// Incompressible input is stored raw with a zero size header.
		binary.LittleEndian.PutUint32(out, 0)

		return append(out[:sizeHeaderLen], data...)
	}

	return out[:sizeHeaderLen+written]
}

func decompress(raw []byte) ([]byte, error) {
	if len(raw) < sizeHeaderLen {
		return nil, errShortEntry
	}

	size := binary.LittleEndian.Uint32(raw)
	if size == 0 {
		return raw[sizeHeaderLen:], nil
	}

	if size > maxEntrySize {
		return nil, fmt.Errorf("%w: %d bytes", errEntryTooLarge, size)
	}

	out := make([]byte, size)

	n, err := lz4.UncompressBlock(raw[sizeHeaderLen:], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 uncompress: %w", err)
	}

	return out[:n], nil
}
