package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute, 10)
	cache.Set("key", []byte("payload"), "image/jpeg")

	data, contentType, ok := cache.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, "image/jpeg", contentType)

	_, _, ok = cache.Get("absent")
	assert.False(t, ok)
}

func TestResponseCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(10*time.Millisecond, 10)
	cache.Set("key", []byte("payload"), "image/jpeg")

	time.Sleep(25 * time.Millisecond)

	_, _, ok := cache.Get("key")
	assert.False(t, ok)
}

func TestResponseCacheEvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute, 2)
	cache.Set("a", []byte("1"), "image/jpeg")
	time.Sleep(2 * time.Millisecond)
	cache.Set("b", []byte("2"), "image/jpeg")
	time.Sleep(2 * time.Millisecond)
	cache.Set("c", []byte("3"), "image/jpeg")

	_, _, ok := cache.Get("a")
	assert.False(t, ok)
	_, _, ok = cache.Get("b")
	assert.True(t, ok)
	_, _, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestSharedClientsAreSingletons(t *testing.T) {
	t.Parallel()

	assert.Same(t, GetScrapeClient(), GetScrapeClient())
	assert.Same(t, GetImageClient(), GetImageClient())
	assert.NotSame(t, GetScrapeClient(), GetImageClient())
}
