package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the underlying redis connection is live
func (c *Cache) Enabled() bool {
	return c.client.Enabled()
}

// Get retrieves a cached value. The second return value reports whether the
// key existed.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		// Key not found is not an error
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// SetNX stores a value only when the key does not exist yet. Returns true
// when the write happened.
func (c *Cache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	return c.client.Redis().SetNX(ctx, fullKey, data, ttl).Result()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// Keys lists the keys under the cache prefix matching pattern. The prefix is
// stripped from the returned keys.
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !c.client.Enabled() {
		return nil, nil
	}

	fullPattern := fmt.Sprintf("%s:%s", c.prefix, pattern)
	raw, err := c.client.Redis().Keys(ctx, fullPattern).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	prefixLen := len(c.prefix) + 1
	for _, k := range raw {
		if len(k) > prefixLen {
			keys = append(keys, k[prefixLen:])
		}
	}
	return keys, nil
}

// Predefined TTLs
const (
	TTLShort     = 1 * time.Minute  // 실시간 시세
	TTLMedium    = 10 * time.Minute // 종목 정보
	TTLOpenPrice = 12 * time.Hour   // 시가 기록 (장 마감 후까지)
)

// OpenPriceKey builds the key for a stock's opening-price record
func OpenPriceKey(code string) string {
	return fmt.Sprintf("open_price:%s", code)
}
