package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/artisan/internal/domain"
)

// MemoryCatalog implements CatalogRepository with in-memory storage
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewMemoryCatalog(products ...*domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]*domain.Product)}
	for _, p := range products {
		c.products[p.ID] = cloneProduct(p)
	}
	return c
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (c *MemoryCatalog) ListProducts(_ context.Context, limit int) ([]*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*domain.Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, cloneProduct(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (c *MemoryCatalog) InsertProduct(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	c.products[product.ID] = cloneProduct(product)
	return nil
}

func (c *MemoryCatalog) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (c *MemoryCatalog) Ping(context.Context) error {
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Photos = append([]domain.Photo(nil), p.Photos...)
	cp.Categories = append([]string(nil), p.Categories...)
	return &cp
}
