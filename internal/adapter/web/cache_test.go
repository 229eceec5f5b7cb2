package web

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls int
	body  string
	err   error
}

func (m *countingFetcher) FetchPage(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.body, m.err
}

// --- CachedFetcher tests ---

func TestCachedFetcher_CacheHit(t *testing.T) {
	inner := &countingFetcher{body: "page body"}
	var hits, misses int
	cached := NewCachedFetcher(inner, 10, func() { hits++ }, func() { misses++ })

	b1, err := cached.FetchPage(context.Background(), "l2008aug.htm")
	require.NoError(t, err)
	assert.Equal(t, "page body", b1)

	b2, err := cached.FetchPage(context.Background(), "l2008aug.htm")
	require.NoError(t, err)
	assert.Equal(t, "page body", b2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCachedFetcher_DifferentKeysMiss(t *testing.T) {
	inner := &countingFetcher{body: "body"}
	cached := NewCachedFetcher(inner, 10, nil, nil)

	_, _ = cached.FetchPage(context.Background(), "l2008aug.htm")
	_, _ = cached.FetchPage(context.Background(), "l2008jul.htm")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_ErrorsNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("boom")}
	cached := NewCachedFetcher(inner, 10, nil, nil)

	_, err := cached.FetchPage(context.Background(), "l2008aug.htm")
	require.Error(t, err)
	_, err = cached.FetchPage(context.Background(), "l2008aug.htm")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_EmptyBodyNotCached(t *testing.T) {
	inner := &countingFetcher{body: ""}
	cached := NewCachedFetcher(inner, 10, nil, nil)

	_, _ = cached.FetchPage(context.Background(), "l2008aug.htm")
	_, _ = cached.FetchPage(context.Background(), "l2008aug.htm")

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", "A")
	c.put("b", "B")

	body, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", body)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	body, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", body)

	body, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", body)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", "A")
	c.put("b", "B")

	// Access "a" to promote it
	c.get("a")

	// Insert "c" -- should evict "b" (LRU), not "a"
	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", "A1")
	c.put("a", "A2")

	body, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", body)
}
