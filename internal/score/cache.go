package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"soul-scanner/pkg/logger"
)

// Cache stores scores that were sourced from the score service.
type Cache interface {
	Get(ctx context.Context, address string) (int, bool, error)
	Set(ctx context.Context, address string, value int) error
}

// CachedService serves repeated lookups for the same address from cache.
// Cache errors are logged and bypassed.
type CachedService struct {
	next  Service
	cache Cache
}

// NewCachedService wraps next with cache.
func NewCachedService(next Service, cache Cache) *CachedService {
	return &CachedService{next: next, cache: cache}
}

// SoulScore implements Service.
func (s *CachedService) SoulScore(ctx context.Context, address string) (int, error) {
	log := logger.Named("score.cache")
	if value, ok, err := s.cache.Get(ctx, address); err != nil {
		log.Warn("score cache read failed", slog.Any("error", err))
	} else if ok {
		return value, nil
	}

	value, err := s.next.SoulScore(ctx, address)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, address, value); err != nil {
		log.Warn("score cache write failed", slog.Any("error", err))
	}
	return value, nil
}

// RedisCacheConfig describes the Redis connection used for score caching.
type RedisCacheConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache keeps scores under "<prefix>:<address>" with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisCacheConfig) (*RedisCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return newRedisCache(client, cfg.Prefix, cfg.TTL), nil
}

func newRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "soulscan:score"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(address string) string {
	return c.prefix + ":" + address
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, address string) (int, bool, error) {
	raw, err := c.client.Get(ctx, c.key(address)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("cached score for %s is not an integer: %w", address, err)
	}
	return value, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, address string, value int) error {
	return c.client.Set(ctx, c.key(address), strconv.Itoa(value), c.ttl).Err()
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
