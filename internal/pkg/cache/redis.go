package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key Key, dest interface{}) (bool, error) {
	val, err := s.rdb.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores the value and records the key in the resource index set so the
// whole resource can be invalidated without SCAN.
func (s *RedisStore) Set(ctx context.Context, key Key, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	index := IndexKey(key.TenantID, key.Resource)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key.String(), payload, ttl)
	pipe.SAdd(ctx, index, key.String())
	pipe.Expire(ctx, index, 2*ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) InvalidateResource(ctx context.Context, tenantID string, resource Resource) error {
	index := IndexKey(tenantID, resource)
	members, err := s.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("failed to read cache index %s: %w", index, err)
	}

	keys := append(members, index)
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys for %s: %w", index, err)
	}
	return nil
}
