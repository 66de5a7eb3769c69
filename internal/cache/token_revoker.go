package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// MemoryTokenRevoker keeps revoked token IDs in process memory
type MemoryTokenRevoker struct {
	mu    sync.Mutex
	items map[string]time.Time
	now   func() time.Time
}

// NewMemoryTokenRevoker creates an in-memory revoker
func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{items: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryTokenRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[tokenID] = r.now().Add(ttl)
	r.sweepLocked()
	return nil
}

func (r *MemoryTokenRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expires, ok := r.items[tokenID]
	if !ok {
		return false, nil
	}
	if r.now().After(expires) {
		delete(r.items, tokenID)
		return false, nil
	}
	return true, nil
}

func (r *MemoryTokenRevoker) sweepLocked() {
	now := r.now()
	for id, expires := range r.items {
		if now.After(expires) {
			delete(r.items, id)
		}
	}
}

// RedisTokenRevoker stores revoked token IDs in Redis with the token's
// remaining lifetime as TTL, so every API instance sees a logout
type RedisTokenRevoker struct {
	client *redis.Client
}

// NewRedisTokenRevoker creates a Redis backed revoker
func NewRedisTokenRevoker(client *redis.Client) *RedisTokenRevoker {
	return &RedisTokenRevoker{client: client}
}

func (r *RedisTokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
