package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStore(client *redis.Client, baseTTL time.Duration) *RedisStore {
	if baseTTL <= 0 {
		baseTTL = 10 * time.Minute
	}
	return &RedisStore{client: client, baseTTL: baseTTL}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Set stores value with the base TTL plus up to a minute of jitter so that
// entries written together do not expire together.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	ttl := r.baseTTL + time.Duration(rand.Int63n(int64(time.Minute)))
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return r.Delete(ctx, keys...)
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
