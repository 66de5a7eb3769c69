package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	catalogKeyPrefix  = "catalog:v"
	catalogVersionKey = "catalog:version"
)

// CatalogCache stores serialized catalog responses. Invalidate bumps a
// version number that is part of every key, so stale entries are never read
// again and simply expire.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewCatalogCache creates a Redis backed catalog cache
func NewCatalogCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl, logger: logger}
}

// Get decodes the cached value for key into dest. Misses and Redis errors
// both report false.
func (c *CatalogCache) Get(ctx context.Context, key string, dest interface{}) bool {
	fullKey, err := c.versionedKey(ctx, key)
	if err != nil {
		return false
	}

	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value for key in the background
func (c *CatalogCache) Set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("catalog cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	fullKey, err := c.versionedKey(ctx, key)
	if err != nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		setCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.client.Set(setCtx, fullKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Invalidate makes every cached entry unreachable
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, catalogVersionKey).Err(); err != nil {
		c.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

// Wait blocks until pending background writes finish
func (c *CatalogCache) Wait() {
	c.wg.Wait()
}

// Key builds a compact cache key from query parts
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func (c *CatalogCache) versionedKey(ctx context.Context, key string) (string, error) {
	version, err := c.client.Get(ctx, catalogVersionKey).Result()
	if err == redis.Nil {
		version = "0"
	} else if err != nil {
		c.logger.Warn("catalog cache version read failed", zap.Error(err))
		return "", err
	}
	return catalogKeyPrefix + version + ":" + Key(key), nil
}
