package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEphemeralStore backs the ephemeral store with Redis. GETDEL makes
// token redemption a single atomic operation.
type RedisEphemeralStore struct {
	rdb       *redis.Client
	namespace string
}

func NewRedisEphemeralStore(rdb *redis.Client, namespace string) *RedisEphemeralStore {
	return &RedisEphemeralStore{rdb: rdb, namespace: namespace}
}

func (s *RedisEphemeralStore) key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

func (s *RedisEphemeralStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisEphemeralStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisEphemeralStore) GetDel(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.rdb.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisEphemeralStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
