package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/artisan/internal/repository"
)

// InventoryAdjuster is the only writer of product stock.
type InventoryAdjuster struct {
	catalog repository.CatalogRepository
}

func NewInventoryAdjuster(catalog repository.CatalogRepository) *InventoryAdjuster {
	return &InventoryAdjuster{catalog: catalog}
}

// Decrement lowers stock by qty if at least qty is available. applied is
// false when a concurrent sale got there first or the product is gone.
func (a *InventoryAdjuster) Decrement(ctx context.Context, productID string, qty int) (bool, error) {
	applied, err := a.catalog.DecrementStock(ctx, productID, qty)
	if errors.Is(err, repository.ErrInvalidQuantity) {
		return false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return false, fmt.Errorf("decrement stock for %s: %w", productID, err)
	}
	return applied, nil
}
