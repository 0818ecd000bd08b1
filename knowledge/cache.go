package knowledge

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	"expansion-evaluator/internal/types"
)

// ResultCache memoizes extraction results per URL. Successes and failures
// expire on separate clocks.
type ResultCache struct {
	successTTL time.Duration
	failureTTL time.Duration

	// Now is the clock used for timestamps and expiry
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]types.CacheEntry
}

// NewResultCache creates an empty cache
func NewResultCache(successTTL, failureTTL time.Duration) *ResultCache {
	return &ResultCache{
		successTTL: successTTL,
		failureTTL: failureTTL,
		Now:        time.Now,
		entries:    make(map[string]types.CacheEntry),
	}
}

func cacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get returns the live entry for url, or ErrCacheMiss. Expired entries are
// dropped on the way out.
func (c *ResultCache) Get(url string) (types.CacheEntry, error) {
	key := cacheKey(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return types.CacheEntry{}, types.ErrCacheMiss
	}

	ttl := c.successTTL
	if entry.IsFailure {
		ttl = c.failureTTL
	}
	if c.Now().Sub(entry.Timestamp) >= ttl {
		delete(c.entries, key)
		return types.CacheEntry{}, types.ErrCacheMiss
	}
	return entry, nil
}

// Put stores result for url, replacing any previous entry
func (c *ResultCache) Put(url string, result types.ExtractionResult, isFailure bool, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(url)] = types.CacheEntry{
		URL:           url,
		Result:        result,
		Timestamp:     c.Now(),
		IsFailure:     isFailure,
		FailureReason: reason,
	}
}

// Len counts stored entries, expired or not
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
