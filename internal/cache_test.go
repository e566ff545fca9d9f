package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Parallel()
	cacheDir := filepath.Join(createTempDir(t, "cache-test"), "cache")
	cache, err := NewCache(cacheDir)
	require.NoError(t, err)

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, cache.Set("(check-sat) ; a", "unsat\n"))

		raw, found := cache.Get("(check-sat) ; a")
		assert.True(t, found)
		assert.Equal(t, "unsat\n", raw)

		reloaded, err := NewCache(cacheDir)
		require.NoError(t, err)
		raw, found = reloaded.Get("(check-sat) ; a")
		assert.True(t, found)
		assert.Equal(t, "unsat\n", raw)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("(check-sat) ; missing")
		assert.False(t, found)
	})

	t.Run("Expired", func(t *testing.T) {
		require.NoError(t, cache.Set("(check-sat) ; old", "sat ()"))
		cache.SetMaxAge(time.Nanosecond)
		time.Sleep(time.Millisecond)

		_, found := cache.Get("(check-sat) ; old")
		assert.False(t, found)
		cache.SetMaxAge(DefaultCacheMaxAge)
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		require.NoError(t, cache.Set("(check-sat) ; b", "unsat"))
		cache.InvalidateAll()
		assert.Zero(t, cache.Len())

		reloaded, err := NewCache(cacheDir)
		require.NoError(t, err)
		assert.Zero(t, reloaded.Len())
	})
}

func TestCachedTransport(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(createTempDir(t, "cached-transport"))
	require.NoError(t, err)

	next := &stubTransport{rules: map[string]string{"unknown": "", "garbage": "(error)"}}
	transport := &CachedTransport{Cache: cache, Next: next}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		raw, err := transport.Submit(ctx, "(check-sat)")
		require.NoError(t, err)
		assert.Equal(t, "unsat\n", raw)
	}
	assert.Equal(t, 1, next.count())

	// responses without a verdict are never reused
	for _, query := range []string{"; unknown", "; garbage", "; unknown"} {
		_, err := transport.Submit(ctx, query)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, next.count())
	assert.Equal(t, 1, cache.Len())
}

func TestCachedTransportError(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(createTempDir(t, "cached-transport-error"))
	require.NoError(t, err)

	next := &stubTransport{err: errors.New("timeout")}
	_, err = (&CachedTransport{Cache: cache, Next: next}).Submit(context.Background(), "(check-sat)")
	assert.EqualError(t, err, "timeout")
	assert.Zero(t, cache.Len())
}
