package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores entries as JSON values. Redis expires keys on its own
// one TTL after they were written, the lazy check in ResultCache still applies.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(addr, prefix string) *RedisBackend {
	return &RedisBackend{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

// NewRedisBackendWithClient uses an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (s *RedisBackend) Load(ctx context.Context, key string) (Entry, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrMiss
		}
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *RedisBackend) Save(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, payload, ttl).Err()
}

func (s *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.prefix+k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *RedisBackend) DeleteAll(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisBackend) Range(ctx context.Context, fn func(key string, e Entry) bool) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		val, err := s.client.Get(ctx, full).Result()
		if err != nil {
			continue
		}
		var e Entry
		if json.Unmarshal([]byte(val), &e) != nil {
			continue
		}
		if !fn(full[len(s.prefix):], e) {
			break
		}
	}
	return iter.Err()
}

func (s *RedisBackend) Close() error {
	return s.client.Close()
}
