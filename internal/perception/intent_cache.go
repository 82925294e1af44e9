package perception

import (
	"encoding/binary"
	"hash/fnv"
	"strings"

	"conservatory/internal/cache"
)

// DefaultIntentCapacity bounds the intent-parse cache. Voice sessions repeat
// themselves constantly ("pH is 7.2 in the shallows" said twice in a row);
// fifty entries covers a long session without meaningful memory cost.
const DefaultIntentCapacity = 50

// IntentCache memoizes parsed intents keyed by transcript and roster size.
type IntentCache struct {
	lru *cache.LRU[uint64, *ParsedIntent]
}

// NewIntentCache creates a cache with the given capacity; capacity <= 0 uses
// the default.
func NewIntentCache(capacity int) *IntentCache {
	if capacity <= 0 {
		capacity = DefaultIntentCapacity
	}
	return &IntentCache{lru: cache.NewLRU[uint64, *ParsedIntent](capacity)}
}

// IntentKey hashes the normalized transcript together with the roster size.
// The roster size is part of the key so a parse cached before an accession is
// not replayed once the roster it was resolved against has changed.
func IntentKey(transcript string, rosterSize int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(transcript))))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(rosterSize))
	h.Write(b[:])
	return h.Sum64()
}

// Get returns the cached parse for key, if any.
func (c *IntentCache) Get(key uint64) (*ParsedIntent, bool) {
	return c.lru.Get(key)
}

// Set stores a parse under key, evicting the least recently used entry when
// full.
func (c *IntentCache) Set(key uint64, intent *ParsedIntent) {
	c.lru.Set(key, intent)
}

// Len reports the number of cached parses.
func (c *IntentCache) Len() int { return c.lru.Len() }
