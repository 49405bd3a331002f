package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyTTL = 24 * time.Hour
	reservationTTL = time.Minute
)

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: IdempotencyTTL}
}

func (s *RedisIdempotencyStore) Lookup(ctx context.Context, userID, key string) (*StoredResponse, error) {
	data, err := s.client.Get(ctx, responseKey(userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var resp StoredResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal stored response failed: %w", err)
	}
	return &resp, nil
}

// Reserve marks a key as in flight. It returns false when another request
// holds the reservation.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, userID, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(userID, key), 1, reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, userID, key string, resp *StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal stored response failed: %w", err)
	}
	if err := s.client.Set(ctx, responseKey(userID, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, userID, key string) error {
	if err := s.client.Del(ctx, lockKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func responseKey(userID, key string) string {
	return fmt.Sprintf("idem:%s:%s", userID, key)
}

func lockKey(userID, key string) string {
	return fmt.Sprintf("idem:lock:%s:%s", userID, key)
}
