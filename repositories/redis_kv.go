package repositories

import (
	"context"
	"time"

	"campusguard/interfaces"

	"github.com/go-redis/redis/v8"
)

// RedisKV is the Redis-backed key-value store behind the session cache and
// the offline queue. Keys are namespaced by the callers.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (kv *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := kv.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (kv *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return kv.client.Set(ctx, key, value, ttl).Err()
}

func (kv *RedisKV) Delete(ctx context.Context, key string) error {
	return kv.client.Del(ctx, key).Err()
}

func (kv *RedisKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		batch, next, err := kv.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
