package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestClientHealthCheck(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestCacheGetOrLoadSafe(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)
	ctx := context.Background()

	var calls int32
	loader := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "1/3", nil
	}

	raw, shared, err := cache.GetOrLoadSafe(ctx, "solution:a", time.Minute, loader)
	require.NoError(t, err)
	assert.False(t, shared)

	var answer string
	require.NoError(t, json.Unmarshal(raw, &answer))
	assert.Equal(t, "1/3", answer)
	assert.True(t, mr.Exists("solution:a"))

	_, shared, err = cache.GetOrLoadSafe(ctx, "solution:a", time.Minute, loader)
	require.NoError(t, err)
	assert.False(t, shared)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("solution:a"))
}

func TestCacheGetOrLoadSafeDoesNotCacheErrors(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)

	_, _, err := cache.GetOrLoadSafe(context.Background(), "solution:b", time.Minute, func() (interface{}, error) {
		return nil, errors.New("solver down")
	})
	require.Error(t, err)
	assert.False(t, mr.Exists("solution:b"))
}

func TestCacheFallsBackToLoaderWhenRedisDown(t *testing.T) {
	c, mr := newTestClient(t)
	cache := NewCache(c)
	mr.Close()

	raw, _, err := cache.GetOrLoadSafe(context.Background(), "solution:c", time.Minute, func() (interface{}, error) {
		return "42", nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"42"`, string(raw))
}

func TestCacheConcurrentLoadsShareResult(t *testing.T) {
	c, _ := newTestClient(t)
	cache := NewCache(c)

	var calls int32
	release := make(chan struct{})
	loader := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	var (
		wg         sync.WaitGroup
		sharedHits int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, shared, err := cache.GetOrLoadSafe(context.Background(), "solution:d", time.Minute, loader)
			assert.NoError(t, err)
			if shared {
				atomic.AddInt32(&sharedHits, 1)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&sharedHits), int32(2))
}

func TestCacheGetMissReturnsNil(t *testing.T) {
	c, _ := newTestClient(t)
	cache := NewCache(c)

	_, err := cache.Get(context.Background(), "missing")
	assert.True(t, IsNil(err))

	require.NoError(t, cache.Set(context.Background(), "k", map[string]int{"a": 1}, time.Minute))
	raw, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	require.NoError(t, cache.Delete(context.Background(), "k"))
	_, err = cache.Get(context.Background(), "k")
	assert.True(t, IsNil(err))
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	c, _ := newTestClient(t)
	limiter := NewRateLimiter(c)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	key := BuildRateLimitKey("127.0.0.1", "/generate-video")
	assert.Equal(t, "ratelimit:127.0.0.1:/generate-video", key)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	now = now.Add(61 * time.Second)
	ok, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Reset(ctx, key))
	remaining, err = limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}
