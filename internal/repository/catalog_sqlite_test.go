package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLiteCatalogRepository {
	t.Helper()
	repo, err := NewSQLiteCatalogRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations("./catalog_migrations"))
	return repo
}

func TestSQLiteCatalog_InsertAndGet(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	p := &domain.Product{
		ID:         "sikki-basket",
		Title:      "Sikki grass basket",
		Price:      decimal.RequireFromString("899.50"),
		Stock:      12,
		Photos:     []domain.Photo{{PublicID: "demo/sikki", URL: "https://example.com/sikki.jpg"}},
		Categories: []string{"basketry"},
	}
	require.NoError(t, repo.InsertProduct(ctx, p))

	got, err := repo.GetProduct(ctx, "sikki-basket")
	require.NoError(t, err)
	assert.Equal(t, "Sikki grass basket", got.Title)
	assert.True(t, decimal.RequireFromString("899.5").Equal(got.Price))
	assert.Equal(t, 12, got.Stock)
	assert.Equal(t, "https://example.com/sikki.jpg", got.CoverPhoto())
	assert.Equal(t, []string{"basketry"}, got.Categories)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Microsecond)

	_, err = repo.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.Error(t, repo.InsertProduct(ctx, p), "duplicate id")
}

func TestSQLiteCatalog_ListNewestFirst(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		p := newTestProduct(id, 10, 1)
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.InsertProduct(ctx, p))
	}

	products, err := repo.ListProducts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "c", products[0].ID)
	assert.Equal(t, "b", products[1].ID)
}

func TestSQLiteCatalog_DecrementStockNeverNegative(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertProduct(ctx, newTestProduct("p1", 10, 5)))

	var wg sync.WaitGroup
	var applied atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.DecrementStock(ctx, "p1", 1)
			assert.NoError(t, err)
			if ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), applied.Load())
	p, err := repo.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	_, err = repo.DecrementStock(ctx, "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	ok, err := repo.DecrementStock(ctx, "missing", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
