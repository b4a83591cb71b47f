// Package seriescache memoizes calendar projections of upstream series.
package seriescache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
)

// CachedMapper wraps a SeriesMapper with an in-memory LRU cache keyed by a
// digest of the raw series. Normals, bands and freeze counts are identical
// across most requests for one location, so they map once.
type CachedMapper struct {
	inner   domain.SeriesMapper
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedMapper creates a cache decorator around a mapper.
func NewCachedMapper(inner domain.SeriesMapper, maxEntries int, metrics *observability.Metrics) *CachedMapper {
	return &CachedMapper{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Map implements domain.SeriesMapper. Cached series are shared between
// callers and must not be modified.
func (c *CachedMapper) Map(raw domain.RawSeries) (domain.CanonicalSeries, []string) {
	key := digest(raw)
	if m, ok := c.cache.get(key); ok {
		c.metrics.SeriesCacheLookups.WithLabelValues("hit").Inc()
		return m.series, m.skipped
	}
	c.metrics.SeriesCacheLookups.WithLabelValues("miss").Inc()

	series, skipped := c.inner.Map(raw)
	c.cache.put(key, mapped{series: series, skipped: skipped})
	c.metrics.SeriesCacheEntries.Set(float64(c.cache.len()))
	return series, skipped
}

// digest hashes dates and value bits; two streams with the same digest map
// to the same calendar series.
func digest(raw domain.RawSeries) string {
	h := sha256.New()
	var buf [8]byte
	for _, d := range raw.Dates {
		h.Write([]byte(d))
		h.Write([]byte{0})
	}
	h.Write([]byte{0xff})
	for _, v := range raw.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

type mapped struct {
	series  domain.CanonicalSeries
	skipped []string
}

// lruCache is a simple thread-safe LRU cache of mapped series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value mapped
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (mapped, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return mapped{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value mapped) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
