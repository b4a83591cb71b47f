package seriescache

import (
	"math"
	"sync"
	"testing"

	"github.com/couchcryptid/dawn-chart-composer/internal/domain"
	"github.com/couchcryptid/dawn-chart-composer/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingMapper struct {
	mu    sync.Mutex
	calls int
}

func (m *countingMapper) Map(raw domain.RawSeries) (domain.CanonicalSeries, []string) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return domain.MapSeries(raw)
}

func rawSeries(values ...float64) domain.RawSeries {
	raw := domain.RawSeries{}
	for i, v := range values {
		raw.Dates = append(raw.Dates, domain.SlotKey(i).String())
		raw.Values = append(raw.Values, v)
	}
	return raw
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Counter != nil {
		return pb.GetCounter().GetValue()
	}
	return pb.GetGauge().GetValue()
}

// --- CachedMapper tests ---

func TestCachedMapper_CacheHit(t *testing.T) {
	inner := &countingMapper{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedMapper(inner, 10, metrics)

	s1, _ := cached.Map(rawSeries(1, 2, 3))
	s2, _ := cached.Map(rawSeries(1, 2, 3))

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 2.0, s1.At(1))
	assert.Equal(t, 2.0, s2.At(1))
	assert.InDelta(t, 1, metricValue(t, metrics.SeriesCacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, metricValue(t, metrics.SeriesCacheLookups.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, metricValue(t, metrics.SeriesCacheEntries), 0)
}

func TestCachedMapper_DifferentValuesMiss(t *testing.T) {
	inner := &countingMapper{}
	cached := NewCachedMapper(inner, 10, observability.NewMetricsForTesting())

	cached.Map(rawSeries(1, 2, 3))
	cached.Map(rawSeries(1, 2, 4))
	cached.Map(rawSeries(1, 2, math.NaN()))

	assert.Equal(t, 3, inner.calls)
}

func TestCachedMapper_SkippedDatesAreCached(t *testing.T) {
	inner := &countingMapper{}
	cached := NewCachedMapper(inner, 10, observability.NewMetricsForTesting())
	raw := domain.RawSeries{Dates: []string{"bogus"}, Values: domain.Series{1}}

	_, skipped := cached.Map(raw)
	require.Equal(t, []string{"bogus"}, skipped)

	_, skipped = cached.Map(raw)
	assert.Equal(t, []string{"bogus"}, skipped)
	assert.Equal(t, 1, inner.calls)
}

func TestDigest(t *testing.T) {
	a := domain.RawSeries{Dates: []string{"ab", "c"}, Values: domain.Series{1}}
	b := domain.RawSeries{Dates: []string{"a", "bc"}, Values: domain.Series{1}}

	assert.NotEqual(t, digest(a), digest(b))
	assert.Equal(t, digest(a), digest(a))
}

// --- LRU cache unit tests ---

func value(v float64) mapped {
	return mapped{series: domain.NewCanonicalSeries(), skipped: []string{string(rune('a' + int(v)))}}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", value(0))
	c.put("b", value(1))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, result.skipped)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", value(0))
	c.put("b", value(1))
	c.put("c", value(2)) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, result.skipped)

	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", value(0))
	c.put("b", value(1))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", value(2))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", value(0))
	c.put("a", value(1))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, result.skipped)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_ZeroSizeKeepsOne(t *testing.T) {
	c := newLRUCache(0)

	c.put("a", value(0))
	_, ok := c.get("a")
	assert.True(t, ok)
}
