package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/artisan/internal/cache"
	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/repository"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultProductLimit = 20
	MaxProductLimit     = 100

	productLoadTimeout = 5 * time.Second
)

// CatalogService serves product browsing. Reads of a single product go
// through the cache; checkout never uses this type.
type CatalogService struct {
	catalog repository.CatalogRepository
	cache   cache.ProductCache
	sfg     singleflight.Group
}

// NewCatalogService accepts a nil cache.
func NewCatalogService(catalog repository.CatalogRepository, productCache cache.ProductCache) *CatalogService {
	return &CatalogService{catalog: catalog, cache: productCache}
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	// the shared load outlives any one caller; each caller still stops
	// waiting when its own ctx is done
	ch := s.sfg.DoChan(id, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), productLoadTimeout)
		defer cancel()
		return s.loadProduct(loadCtx, id)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Product), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CatalogService) loadProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		product, err := s.cache.Get(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "product cache get failed", "product_id", id, "error", err)
		}
	}

	product, err := s.catalog.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if s.cache != nil {
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, product); err != nil {
				slog.Warn("product cache set failed", "product_id", id, "error", err)
			}
		}()
	}
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = DefaultProductLimit
	}
	if limit > MaxProductLimit {
		limit = MaxProductLimit
	}
	products, err := s.catalog.ListProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
