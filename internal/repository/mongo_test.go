package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupMongo(t *testing.T) (CatalogRepository, OrderRepository, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb", "artisan-test")
	require.NoError(t, err)

	catalog := NewMongoCatalogRepository(db)
	require.NoError(t, catalog.(*mongoCatalogRepository).CreateIndexes(ctx))

	orders := NewMongoOrderRepository(db)
	require.NoError(t, orders.(*mongoOrderRepository).CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return catalog, orders, cleanup
}

func TestMongoCatalog_InsertAndGet(t *testing.T) {
	catalog, _, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	p := newTestProduct("p1", 0, 4)
	p.Price = decimal.RequireFromString("249.50")
	require.NoError(t, catalog.InsertProduct(ctx, p))

	got, err := catalog.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(got.Price))
	assert.Equal(t, 4, got.Stock)
	assert.Equal(t, "https://cdn.example/mug.jpg", got.CoverPhoto())

	_, err = catalog.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMongoCatalog_DecrementStock_Concurrent(t *testing.T) {
	catalog, _, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, catalog.InsertProduct(ctx, newTestProduct("p1", 100, 1)))

	var wg sync.WaitGroup
	results := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := catalog.DecrementStock(ctx, "p1", 1)
			assert.NoError(t, err)
			results <- applied
		}()
	}
	wg.Wait()
	close(results)

	appliedCount := 0
	for applied := range results {
		if applied {
			appliedCount++
		}
	}
	assert.Equal(t, 1, appliedCount)

	p, err := catalog.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestMongoCatalog_ListProducts_NewestFirst(t *testing.T) {
	catalog, _, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		p := newTestProduct(id, 10, 1)
		p.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, catalog.InsertProduct(ctx, p))
	}

	products, err := catalog.ListProducts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "c", products[0].ID)
	assert.Equal(t, "b", products[1].ID)
}

func TestMongoOrders_CreateAndTransition(t *testing.T) {
	_, orders, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder(uuid.NewString(), "u1")
	require.NoError(t, orders.CreateOrder(ctx, order))
	assert.ErrorIs(t, orders.CreateOrder(ctx, order), ErrDuplicateOrder)

	ok, err := orders.AttachProviderOrderID(ctx, order.ID, "order_X")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orders.AttachProviderOrderID(ctx, order.ID, "order_Y")
	require.NoError(t, err)
	assert.False(t, ok)

	fields := &domain.PaymentFields{ProviderPaymentID: "pay_1", ProviderSignature: "sig"}
	ok, err = orders.TransitionStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusPaid, fields)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orders.TransitionStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusPaid, fields)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := orders.FindByProviderOrderID(ctx, "order_X")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
	assert.Equal(t, "pay_1", got.ProviderPaymentID)
	assert.True(t, decimal.NewFromInt(200).Equal(got.Amount))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestMongoOrders_PendingOrdersWithoutProviderIDDoNotCollide(t *testing.T) {
	_, orders, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, orders.CreateOrder(ctx, newTestOrder(uuid.NewString(), "u1")))
	require.NoError(t, orders.CreateOrder(ctx, newTestOrder(uuid.NewString(), "u1")))

	list, err := orders.ListOrdersByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMongoOrders_ForceStatusAndListStale(t *testing.T) {
	_, orders, cleanup := setupMongo(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	stale := newTestOrder(uuid.NewString(), "u1")
	stale.CreatedAt = now.Add(-30 * time.Hour)
	fresh := newTestOrder(uuid.NewString(), "u1")
	require.NoError(t, orders.CreateOrder(ctx, stale))
	require.NoError(t, orders.CreateOrder(ctx, fresh))

	list, err := orders.ListStale(ctx, domain.OrderStatusPending, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stale.ID, list[0].ID)

	prev, err := orders.ForceStatus(ctx, stale.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, prev)

	list, err = orders.ListStale(ctx, domain.OrderStatusPending, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = orders.ForceStatus(ctx, "missing", domain.OrderStatusPaid)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
