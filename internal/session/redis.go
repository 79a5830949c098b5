package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token in Redis. Useful when several tools on one
// machine should share a login, or in dev setups that already run Redis.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	val, err := s.rdb.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	} else if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	// No TTL: the server side owns token lifetime, we just hold the value.
	return s.rdb.Set(ctx, tokenKey, token, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, tokenKey).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
