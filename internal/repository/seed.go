package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/artisan/internal/domain"
	"github.com/shopspring/decimal"
)

// DemoProducts returns a fresh copy of the demo catalog on every call.
func DemoProducts() []*domain.Product {
	return []*domain.Product{
		{
			ID:          "madhubani-peacock",
			Owner:       "artisan-sita",
			Title:       "Madhubani peacock painting",
			Description: "Natural dyes on handmade paper, 12x16 in.",
			Price:       decimal.RequireFromString("2499.00"),
			Stock:       8,
			Photos:      []domain.Photo{{PublicID: "demo/madhubani-peacock", URL: "https://res.cloudinary.com/demo/image/upload/madhubani-peacock.jpg"}},
			Categories:  []string{"painting"},
			District:    "Madhubani",
		},
		{
			ID:          "terracotta-planter",
			Owner:       "artisan-ravi",
			Title:       "Terracotta planter",
			Description: "Wheel-thrown, unglazed, with drainage hole.",
			Price:       decimal.RequireFromString("650.00"),
			Stock:       25,
			Photos:      []domain.Photo{{PublicID: "demo/terracotta-planter", URL: "https://res.cloudinary.com/demo/image/upload/terracotta-planter.jpg"}},
			Categories:  []string{"pottery", "garden"},
			District:    "Khurja",
		},
		{
			ID:          "sikki-basket",
			Owner:       "artisan-meena",
			Title:       "Sikki grass basket",
			Description: "Golden grass coil basket with lid.",
			Price:       decimal.RequireFromString("899.50"),
			Stock:       12,
			Photos:      []domain.Photo{{PublicID: "demo/sikki-basket", URL: "https://res.cloudinary.com/demo/image/upload/sikki-basket.jpg"}},
			Categories:  []string{"basketry"},
			District:    "Sitamarhi",
		},
		{
			ID:          "brass-diya",
			Owner:       "artisan-ravi",
			Title:       "Brass diya pair",
			Description: "Hand-cast brass oil lamps.",
			Price:       decimal.RequireFromString("1200.00"),
			Stock:       3,
			Categories:  []string{"metalwork"},
			District:    "Moradabad",
		},
	}
}

// SeedCatalog inserts every product that is not already present and returns
// how many were inserted. Existing products are left untouched.
func SeedCatalog(ctx context.Context, catalog CatalogRepository, products []*domain.Product) (int, error) {
	inserted := 0
	for _, p := range products {
		_, err := catalog.GetProduct(ctx, p.ID)
		if err == nil {
			slog.DebugContext(ctx, "product already seeded", "product_id", p.ID)
			continue
		}
		if !errors.Is(err, ErrProductNotFound) {
			return inserted, fmt.Errorf("check product %s: %w", p.ID, err)
		}
		if err := catalog.InsertProduct(ctx, p); err != nil {
			return inserted, fmt.Errorf("insert product %s: %w", p.ID, err)
		}
		inserted++
	}
	return inserted, nil
}
