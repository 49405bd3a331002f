package cache

import (
	"context"
	"errors"

	"github.com/fjod/artisan/internal/domain"
)

// ProductCache is a read-through cache for catalog browsing. Stock-sensitive
// paths (cart resolution, inventory) never read from it.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

// IdempotencyStore remembers the first successful response for a
// (user, Idempotency-Key) pair.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, key string) (*StoredResponse, error)
	Reserve(ctx context.Context, userID, key string) (bool, error)
	Save(ctx context.Context, userID, key string, resp *StoredResponse) error
	Release(ctx context.Context, userID, key string) error
}

// StoredResponse is the first response for a key. Fingerprint identifies
// the request body it answered.
type StoredResponse struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

var ErrCacheMiss = errors.New("cache miss")
