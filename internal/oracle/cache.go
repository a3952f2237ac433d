package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"github.com/redis/go-redis/v9"
)

// Cache is a shared key/value store for oracle answers.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache stores answers in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis server at addr.
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemcacheCache stores answers in memcached.
type MemcacheCache struct {
	client *memcache.Client
}

// NewMemcacheCache connects to one or more memcached servers.
func NewMemcacheCache(servers ...string) *MemcacheCache {
	return &MemcacheCache{client: memcache.New(servers...)}
}

func (c *MemcacheCache) Get(ctx context.Context, key string) (string, bool, error) {
	item, err := c.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memcache get %s: %w", key, err)
	}
	return string(item.Value), true, nil
}

func (c *MemcacheCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := c.client.Set(&memcache.Item{
		Key:        key,
		Value:      []byte(value),
		Expiration: int32(ttl / time.Second),
	})
	if err != nil {
		return fmt.Errorf("memcache set %s: %w", key, err)
	}
	return nil
}

// CachedOracle memoizes answers so identical questions get identical answers.
// Lookups go local first, then to the optional remote cache. Failures are
// never cached and remote cache errors count as misses.
type CachedOracle struct {
	next   Oracle
	local  *ccache.Cache[string]
	remote Cache
	ttl    time.Duration
}

// NewCachedOracle wraps next. remote may be nil.
func NewCachedOracle(next Oracle, remote Cache, ttl time.Duration, maxEntries int64) *CachedOracle {
	if maxEntries <= 0 {
		maxEntries = 5000
	}
	return &CachedOracle{
		next:   next,
		local:  ccache.New(ccache.Configure[string]().MaxSize(maxEntries)),
		remote: remote,
		ttl:    ttl,
	}
}

func (c *CachedOracle) ResolveTerm(ctx context.Context, term, field string, vocabulary []string) (string, error) {
	key := cacheKey("term", field, strings.ToLower(strings.TrimSpace(term)), strings.Join(vocabulary, "\x1f"))
	return c.lookup(ctx, key, func() (string, error) {
		return c.next.ResolveTerm(ctx, term, field, vocabulary)
	})
}

func (c *CachedOracle) ResolveDate(ctx context.Context, text string, defaultYear int) (string, error) {
	key := cacheKey("date", strings.ToLower(strings.TrimSpace(text)), strconv.Itoa(defaultYear))
	return c.lookup(ctx, key, func() (string, error) {
		return c.next.ResolveDate(ctx, text, defaultYear)
	})
}

// Stop releases the local cache's background worker.
func (c *CachedOracle) Stop() {
	c.local.Stop()
}

func (c *CachedOracle) lookup(ctx context.Context, key string, resolve func() (string, error)) (string, error) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	if c.remote != nil {
		value, found, err := c.remote.Get(ctx, key)
		if err != nil {
			log.Printf("Oracle cache read failed: %v", err)
		} else if found {
			c.local.Set(key, value, c.ttl)
			return value, nil
		}
	}

	value, err := resolve()
	if err != nil {
		return "", err
	}

	c.local.Set(key, value, c.ttl)
	if c.remote != nil {
		if err := c.remote.Set(ctx, key, value, c.ttl); err != nil {
			log.Printf("Oracle cache write failed: %v", err)
		}
	}
	return value, nil
}

// cacheKey hashes the question so keys are short and safe for memcached.
func cacheKey(kind string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1e")))
	return "staymatch:oracle:" + kind + ":" + hex.EncodeToString(sum[:])
}
