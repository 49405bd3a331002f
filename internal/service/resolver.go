package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/repository"
	"github.com/shopspring/decimal"
)

// CartResolver prices a client cart against the catalog. It never writes.
type CartResolver struct {
	catalog repository.CatalogRepository
}

func NewCartResolver(catalog repository.CatalogRepository) *CartResolver {
	return &CartResolver{catalog: catalog}
}

// Resolve returns one line item per cart line, in cart order, priced at the
// product's current price. The stock check is a pre-check against the
// quantity requested for each product across the whole cart; the
// authoritative decrement happens after payment.
func (r *CartResolver) Resolve(ctx context.Context, lines []domain.CartLine) (*domain.ResolvedCart, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	requested := make(map[string]int, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return nil, fmt.Errorf("%w: line %d has no product id", ErrInvalidInput, i)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be at least 1", ErrInvalidInput, i)
		}
		requested[line.ProductID] += line.Quantity
	}

	products := make(map[string]*domain.Product, len(requested))
	items := make([]domain.OrderLineItem, 0, len(lines))
	amount := decimal.Zero

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			p, err := r.catalog.GetProduct(ctx, line.ProductID)
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			if err != nil {
				return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
			}
			if requested[line.ProductID] > p.Stock {
				return nil, fmt.Errorf("%w: %s has %d, requested %d",
					ErrInsufficientStock, line.ProductID, p.Stock, requested[line.ProductID])
			}
			products[line.ProductID] = p
			product = p
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, domain.OrderLineItem{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
			Photo:     product.CoverPhoto(),
		})
		amount = amount.Add(subtotal)
	}

	return &domain.ResolvedCart{Items: items, Amount: amount}, nil
}
