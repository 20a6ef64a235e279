// Package cache provides a content-addressed cache of transform results
// with disk persistence.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-esym/pkg/types"
)

// formatVersion is bumped whenever the persisted layout or the meaning of a
// key changes. Files with another version are discarded on load.
const formatVersion = 1

// DefaultMaxEntries is used when Options.MaxEntries is not positive.
const DefaultMaxEntries = 4096

// ErrVersionMismatch is returned by Load for a file written by another
// format version.
var ErrVersionMismatch = errors.New("cache format version mismatch")

// Entry is a cached transform result.
type Entry struct {
	Key       string          `msgpack:"key"`
	Path      string          `msgpack:"path"`
	Code      string          `msgpack:"code"`
	Metadata  *types.Metadata `msgpack:"metadata"`
	CreatedAt time.Time       `msgpack:"created_at"`
}

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the number of cached results.
	MaxEntries int
}

// Stats holds cache statistics.
type Stats struct {
	Length int
	Hits   int64
	Misses int64
}

// HitRate returns the share of lookups that hit.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a bounded LRU of transform results keyed by Key. It is safe for
// concurrent use.
type Cache struct {
	entries *lru.Cache[string, Entry]
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates an empty cache.
func New(opts Options) (*Cache, error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = DefaultMaxEntries
	}

	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Key derives the cache key of a file from its path, its content and a
// fingerprint of every option that influences the output.
func Key(path string, content []byte, fingerprint string) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(path), content, []byte(fingerprint)} {
		fmt.Fprintf(h, "%d:", len(part))
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes v, typically a configuration struct, with msgpack.
// Map keys are sorted so equal values always hash the same.
func Fingerprint(v any) (string, error) {
	h := sha256.New()
	enc := msgpack.NewEncoder(h)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("fingerprinting options: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves the entry stored under key.
func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e, ok
}

// Put stores e under e.Key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Put(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	c.entries.Add(e.Key, e)
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.entries.Remove(key)
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns the current cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Length: c.entries.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

type persisted struct {
	Version int     `msgpack:"version"`
	Entries []Entry `msgpack:"entries"`
}

// Save writes the cache to w with msgpack, least recently used first.
func (c *Cache) Save(w io.Writer) error {
	data := persisted{Version: formatVersion}
	for _, key := range c.entries.Keys() {
		if e, ok := c.entries.Peek(key); ok {
			data.Entries = append(data.Entries, e)
		}
	}
	return msgpack.NewEncoder(w).Encode(&data)
}

// Load replaces the cache contents with what Save wrote to r.
func (c *Cache) Load(r io.Reader) error {
	var data persisted
	if err := msgpack.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	if data.Version != formatVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, data.Version, formatVersion)
	}

	c.entries.Purge()
	for _, e := range data.Entries {
		c.entries.Add(e.Key, e)
	}
	return nil
}

// PersistToFile saves the cache to path, replacing it atomically.
func PersistToFile(c *Cache, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmp := f.Name()

	if err := c.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// LoadFromFile loads the cache from path. A missing file leaves the cache
// empty.
func LoadFromFile(c *Cache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}
