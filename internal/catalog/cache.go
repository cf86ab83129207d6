package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// EntryCache caches positive snapshot entries. Absence of a product is never
// cached so a deleted product disappears from snapshots immediately.
type EntryCache interface {
	GetMany(ctx context.Context, productIDs []string) (map[string]Entry, error)
	SetMany(ctx context.Context, entries map[string]Entry) error
	Delete(ctx context.Context, productID string) error
}

func NewRedisEntryCache(client *redis.Client) *RedisEntryCache {
	return &RedisEntryCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

type RedisEntryCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisEntryCache) GetMany(ctx context.Context, productIDs []string) (map[string]Entry, error) {
	if len(productIDs) == 0 {
		return map[string]Entry{}, nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = cacheKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	entries := make(map[string]Entry, len(productIDs))
	for i, v := range values {
		if v == nil {
			continue // miss
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal catalog entry failed: %w", err)
		}
		entries[productIDs[i]] = entry
	}

	return entries, nil
}

func (r *RedisEntryCache) SetMany(ctx context.Context, entries map[string]Entry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal catalog entry failed: %w", err)
		}
		jitter := time.Duration(rand.Intn(60)) * time.Second
		pipe.Set(ctx, cacheKey(id), data, r.baseTTL+jitter)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline set failed: %w", err)
	}
	return nil
}

func (r *RedisEntryCache) Delete(ctx context.Context, productID string) error {
	if err := r.client.Del(ctx, cacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(productID string) string {
	return fmt.Sprintf("catalog:%s", productID)
}
