package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	values map[string]int
	getErr error
	sets   int
}

func (m *memoryCache) Get(_ context.Context, address string) (int, bool, error) {
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.values[address]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, address string, value int) error {
	m.sets++
	m.values[address] = value
	return nil
}

func TestCachedServiceServesFromCache(t *testing.T) {
	next := &stubService{value: 88}
	cache := &memoryCache{values: map[string]int{}}
	svc := NewCachedService(next, cache)

	for i := 0; i < 3; i++ {
		v, err := svc.SoulScore(context.Background(), "0xabc")
		require.NoError(t, err)
		require.Equal(t, 88, v)
	}
	require.Equal(t, 1, next.calls)
	require.Equal(t, 1, cache.sets)
}

func TestCachedServiceDoesNotCacheFailures(t *testing.T) {
	next := &stubService{err: errors.New("down")}
	cache := &memoryCache{values: map[string]int{}}
	svc := NewCachedService(next, cache)

	_, err := svc.SoulScore(context.Background(), "0xabc")
	require.Error(t, err)
	require.Zero(t, cache.sets)
}

func TestCachedServiceBypassesBrokenCache(t *testing.T) {
	next := &stubService{value: 61}
	cache := &memoryCache{values: map[string]int{}, getErr: errors.New("redis down")}
	v, err := NewCachedService(next, cache).SoulScore(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, 61, v)
	require.Equal(t, 1, next.calls)
}

func TestRedisCacheDefaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	c := newRedisCache(client, "", 0)
	require.Equal(t, "soulscan:score:0xabc", c.key("0xabc"))
	require.Equal(t, 5*time.Minute, c.ttl)

	_, err := NewRedisCache(context.Background(), RedisCacheConfig{})
	require.Error(t, err)
}
