package service

import (
	"context"
	"testing"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AmountIsSumOfSubtotalsInCartOrder(t *testing.T) {
	catalog := repository.NewMemoryCatalog(
		product("p1", "100", 5),
		product("p2", "19.99", 10),
		product("p3", "0.10", 3),
	)
	resolver := NewCartResolver(catalog)

	cart, err := resolver.Resolve(context.Background(), []domain.CartLine{
		{ProductID: "p3", Quantity: 3},
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 7},
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 3)

	assert.Equal(t, "p3", cart.Items[0].ProductID)
	assert.Equal(t, "p1", cart.Items[1].ProductID)
	assert.Equal(t, "p2", cart.Items[2].ProductID)

	assert.True(t, decimal.RequireFromString("0.30").Equal(cart.Items[0].Subtotal))
	assert.True(t, decimal.RequireFromString("200").Equal(cart.Items[1].Subtotal))
	assert.True(t, decimal.RequireFromString("139.93").Equal(cart.Items[2].Subtotal))
	assert.True(t, decimal.RequireFromString("340.23").Equal(cart.Amount), cart.Amount.String())

	assert.Equal(t, "https://cdn.example/p1.jpg", cart.Items[1].Photo)
	assert.Equal(t, "Product p1", cart.Items[1].Title)
}

func TestResolve_InsufficientStock(t *testing.T) {
	resolver := NewCartResolver(repository.NewMemoryCatalog(product("p1", "100", 1)))

	_, err := resolver.Resolve(context.Background(), []domain.CartLine{{ProductID: "p1", Quantity: 2}})
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestResolve_RepeatedProductCountsTowardsStock(t *testing.T) {
	resolver := NewCartResolver(repository.NewMemoryCatalog(product("p1", "100", 3)))

	_, err := resolver.Resolve(context.Background(), []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p1", Quantity: 2},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestResolve_InvalidInput(t *testing.T) {
	resolver := NewCartResolver(repository.NewMemoryCatalog(product("p1", "100", 3)))
	ctx := context.Background()

	tests := []struct {
		name  string
		lines []domain.CartLine
	}{
		{"empty cart", nil},
		{"zero quantity", []domain.CartLine{{ProductID: "p1", Quantity: 0}}},
		{"negative quantity", []domain.CartLine{{ProductID: "p1", Quantity: -1}}},
		{"blank product", []domain.CartLine{{ProductID: "  ", Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(ctx, tt.lines)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestResolve_ProductNotFound(t *testing.T) {
	resolver := NewCartResolver(repository.NewMemoryCatalog(product("p1", "100", 3)))

	_, err := resolver.Resolve(context.Background(), []domain.CartLine{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "ghost", Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}
