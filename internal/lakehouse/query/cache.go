// Package query implements spec.md §4.H: the query surface that registers
// materialized views as a pushdown-capable table provider, backed by a
// process-wide metadata cache and the JIT/pushdown machinery described in
// spec.md §4.G/§4.H.
package query

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MetadataCache is a process-wide, byte-weighted LRU of per-file parquet
// footer metadata, keyed by file path, per spec.md §4.H: "a process-wide
// metadata cache keyed by file path, sized by serialized metadata bytes
// (default 50 MB), weigher = each entry's serialized thrift-metadata size."
//
// golang-lru/v2's Cache is count-bounded, not byte-weighted, so this type
// wraps it with its own byte budget and evicts the actual LRU tail via
// RemoveOldest() whenever admitting an entry would exceed the budget —
// the same "LRU ordering, weighed eviction" shape as a weigher-backed
// cache, without needing a dependency the ecosystem doesn't offer for Go.
type MetadataCache struct {
	mu         sync.Mutex
	cache      *lru.Cache[string, []byte]
	budgetB    int64
	currentB   int64
}

// NewMetadataCache creates a cache with the given byte budget (spec.md
// §6's MICROMEGAS_METADATA_CACHE_MB, converted to bytes by the caller).
func NewMetadataCache(budgetBytes int64) (*MetadataCache, error) {
	// The underlying count-bounded cache is sized generously; the real
	// capacity limit is enforced by budgetBytes in Put.
	c, err := lru.New[string, []byte](1 << 20)
	if err != nil {
		return nil, err
	}
	return &MetadataCache{cache: c, budgetB: budgetBytes}, nil
}

// Get returns the cached footer bytes for path, if present.
func (m *MetadataCache) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Get(path)
}

// Put admits footer bytes for path, evicting least-recently-used entries
// until the cache fits within the byte budget.
func (m *MetadataCache) Put(path string, footer []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.cache.Peek(path); ok {
		m.currentB -= int64(len(old))
	}
	m.cache.Add(path, footer)
	m.currentB += int64(len(footer))
	for m.currentB > m.budgetB && m.cache.Len() > 0 {
		_, evicted, ok := m.cache.RemoveOldest()
		if !ok {
			break
		}
		m.currentB -= int64(len(evicted))
	}
}

// Invalidate drops path from the cache. The catalog's partition-retirement
// paths do not call it, so an entry for a retired file stays cached until
// LRU eviction removes it.
func (m *MetadataCache) Invalidate(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.cache.Peek(path); ok {
		m.currentB -= int64(len(old))
	}
	m.cache.Remove(path)
}
