package texture

import (
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/common"
)

// CacheKey derives the cache identity of a card: its title and tag list.
//
// Parameters:
//   - card: the card record
//
// Returns:
//   - string: the key
func CacheKey(card common.CardRecord) string {
	return card.Title + "\x00" + strings.Join(card.Tags, "\x1f")
}

// Cache holds generated texture pairs keyed by CacheKey. It is owned by one Generator and
// cleared as a whole on teardown.
type Cache struct {
	mu      *sync.Mutex
	entries map[string]Pair
	epoch   uint64
}

// NewCache creates an empty Cache.
//
// Returns:
//   - *Cache: the cache
func NewCache() *Cache {
	return &Cache{
		mu:      &sync.Mutex{},
		entries: make(map[string]Pair),
	}
}

// Get returns the pair cached under key. Pairs with released textures are treated as missing.
func (c *Cache) Get(key string) (Pair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	if !ok || p.Released() {
		return Pair{}, false
	}
	return p, true
}

// Put stores p under key unless the cache was cleared since epoch. A pair that loses the race
// against a concurrent Put for the same key, or arrives after a Clear, is released.
//
// Parameters:
//   - key: the cache key
//   - p: the pair to store
//   - epoch: the value of Epoch when generation started
//
// Returns:
//   - Pair: the pair now cached under key
//   - bool: false if the cache was cleared since epoch (p has been released)
func (c *Cache) Put(key string, p Pair, epoch uint64) (Pair, bool) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		p.Release()
		return Pair{}, false
	}
	if existing, ok := c.entries[key]; ok && !existing.Released() {
		c.mu.Unlock()
		if existing != p {
			p.Release()
		}
		return existing, true
	}
	c.entries[key] = p
	c.mu.Unlock()
	return p, true
}

// Epoch returns a counter incremented by every Clear.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear releases every cached texture and empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]Pair)
	c.epoch++
	c.mu.Unlock()

	for _, p := range entries {
		p.Release()
	}
}
