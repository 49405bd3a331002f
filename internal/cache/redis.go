package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisProductCache(client *redis.Client) *RedisProductCache {
	return &RedisProductCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

type RedisProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisProductCache) Get(ctx context.Context, productID string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var product domain.Product
	if err2 := json.Unmarshal(data, &product); err2 != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err2)
	}

	return &product, nil
}

func (r *RedisProductCache) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	// jitter spreads expiry of products cached in the same burst
	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := r.client.Set(ctx, productKey(product.ID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisProductCache) Delete(ctx context.Context, productID string) error {
	if err := r.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func productKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}
