package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/desiderantes/stew/internal/adapter/lexer"
	"github.com/desiderantes/stew/internal/domain"
	"github.com/desiderantes/stew/internal/port"
)

// ContentCache is a bounded LRU of extraction outcomes keyed by content
// hash. Extraction output does not depend on the file name, so files with
// identical bytes share one entry.
type ContentCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	records []domain.MessageRecord
	scanErr *lexer.ScanError
}

// NewContentCache returns a cache holding at most maxSize contents; a
// non-positive size means 256.
func NewContentCache(maxSize int) *ContentCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &ContentCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func cacheKey(src []byte) string {
	hash := sha256.Sum256(src)
	return hex.EncodeToString(hash[:16])
}

func (c *ContentCache) get(key string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	c.hits++
	c.moveToEnd(key)
	return entry, true
}

func (c *ContentCache) put(key string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry. Entries are only valid for the keyword
// table and domain filter they were extracted with.
func (c *ContentCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

// Size returns the number of distinct contents held.
func (c *ContentCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *ContentCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *ContentCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *ContentCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *ContentCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedExtractor serves repeated contents from a ContentCache.
type CachedExtractor struct {
	extractor port.Extractor
	cache     *ContentCache
}

func NewCachedExtractor(extractor port.Extractor, cache *ContentCache) *CachedExtractor {
	return &CachedExtractor{
		extractor: extractor,
		cache:     cache,
	}
}

// Extract returns cached records for src when present. A cached scan error
// is re-issued with name as its file.
func (e *CachedExtractor) Extract(name string, src []byte) ([]domain.MessageRecord, error) {
	key := cacheKey(src)
	if entry, hit := e.cache.get(key); hit {
		records := append([]domain.MessageRecord(nil), entry.records...)
		if entry.scanErr != nil {
			scanErr := *entry.scanErr
			scanErr.File = name
			return records, &scanErr
		}
		return records, nil
	}

	records, err := e.extractor.Extract(name, src)
	entry := &cacheEntry{records: records}
	if err != nil {
		var scanErr *lexer.ScanError
		if !errors.As(err, &scanErr) {
			return records, err
		}
		entry.scanErr = scanErr
	}
	e.cache.put(key, entry)

	return append([]domain.MessageRecord(nil), records...), err
}
