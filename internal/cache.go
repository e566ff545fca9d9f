package internal

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gnolang/tverify/internal/smt"
	"github.com/gnolang/tverify/internal/theorem"
)

const cacheFileName = "solver_cache.gob"

// DefaultCacheMaxAge bounds how long a solver response is reused.
const DefaultCacheMaxAge = 7 * 24 * time.Hour

type CacheEntry struct {
	Response     string
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache keeps solver responses on disk, keyed by the hash of the query
// text. A query determines its response, so entries only expire by age.
type Cache struct {
	CacheDir string
	entries  map[string]CacheEntry
	mutex    sync.Mutex
	maxAge   time.Duration
}

func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		CacheDir: cacheDir,
		entries:  make(map[string]CacheEntry),
		maxAge:   DefaultCacheMaxAge,
	}

	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}

	return cache, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

func (c *Cache) load() error {
	file, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}

	return nil
}

// save writes the entries to a temporary file first so a concurrent
// reader never sees a partial cache.
func (c *Cache) save() error {
	tmp, err := os.CreateTemp(c.CacheDir, "cache_*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(c.entries); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return os.Rename(tmp.Name(), c.path())
}

func queryKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Set(query, response string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	c.entries[queryKey(query)] = CacheEntry{
		Response:     response,
		CreatedAt:    now,
		LastAccessed: now,
	}

	return c.save()
}

func (c *Cache) Get(query string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := queryKey(query)
	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}

	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		return "", false
	}

	entry.LastAccessed = time.Now()
	c.entries[key] = entry

	return entry.Response, true
}

func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

func (c *Cache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	_ = c.save() // ignore error as this is a manual operation
}

// CachedTransport answers repeated queries from a Cache. Only definitive
// responses are stored.
type CachedTransport struct {
	Cache *Cache
	Next  theorem.Transport
}

func (t *CachedTransport) Submit(ctx context.Context, query string) (string, error) {
	if raw, ok := t.Cache.Get(query); ok {
		return raw, nil
	}
	raw, err := t.Next.Submit(ctx, query)
	if err != nil {
		return "", err
	}
	if verdict, err := smt.ParseVerdict(raw); err == nil && verdict != smt.Unknown {
		// a failed write only costs a later solver call
		_ = t.Cache.Set(query, raw)
	}
	return raw, nil
}
