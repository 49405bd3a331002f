package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/gateway"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckout_CreatesPendingOrder(t *testing.T) {
	f := newFixture(product("p1", "100", 5))
	ctx := context.Background()

	session, err := f.checkout.CreateCheckout(ctx, CheckoutRequest{
		UserID:   "u1",
		Items:    []domain.CartLine{{ProductID: "p1", Quantity: 2}},
		Shipping: testShipping,
	})
	require.NoError(t, err)

	assert.Equal(t, "order_A", session.ProviderOrderID)
	assert.Equal(t, "rzp_test_key", session.ProviderKey)
	assert.Equal(t, int64(20000), session.Amount)
	assert.Equal(t, "INR", session.Currency)

	order, err := f.orders.GetOrderByID(ctx, session.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(order.Amount))
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, "order_A", order.ProviderOrderID)
	assert.Equal(t, domain.ProviderRazorpay, order.Provider)

	// checkout never touches stock
	p, err := f.catalog.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestCreateCheckout_SendsReceiptAndMinorUnits(t *testing.T) {
	f := newFixture(product("p1", "10.005", 5))
	var got gateway.CreateOrderRequest
	f.gateway.create = func(_ context.Context, req gateway.CreateOrderRequest) (*gateway.ProviderOrder, error) {
		got = req
		return &gateway.ProviderOrder{ID: "order_X"}, nil
	}

	session, err := f.checkout.CreateCheckout(context.Background(), CheckoutRequest{
		UserID:   "u1",
		Items:    []domain.CartLine{{ProductID: "p1", Quantity: 1}},
		Shipping: testShipping,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1001), got.Amount)
	assert.Equal(t, session.OrderID, got.Receipt)
	assert.Equal(t, "u1", got.Notes["user_id"])
}

func TestCreateCheckout_InsufficientStockCreatesNoOrder(t *testing.T) {
	f := newFixture(product("p1", "100", 1))
	ctx := context.Background()

	_, err := f.checkout.CreateCheckout(ctx, CheckoutRequest{
		UserID:   "u1",
		Items:    []domain.CartLine{{ProductID: "p1", Quantity: 2}},
		Shipping: testShipping,
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	orders, err := f.orders.ListOrdersByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, int32(0), f.gateway.calls.Load())
}

func TestCreateCheckout_InvalidShipping(t *testing.T) {
	f := newFixture(product("p1", "100", 5))

	for _, shipping := range []domain.ShippingInfo{
		{HomeAddress: "", ContactNo: "98"},
		{HomeAddress: "addr", ContactNo: "   "},
	} {
		_, err := f.checkout.CreateCheckout(context.Background(), CheckoutRequest{
			UserID:   "u1",
			Items:    []domain.CartLine{{ProductID: "p1", Quantity: 1}},
			Shipping: shipping,
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Equal(t, int32(0), f.gateway.calls.Load())
}

func TestCreateCheckout_GatewayTimeoutLeavesOrderPending(t *testing.T) {
	f := newFixture(product("p1", "100", 5))
	f.checkout.timeout = 20 * time.Millisecond
	f.gateway.create = func(ctx context.Context, _ gateway.CreateOrderRequest) (*gateway.ProviderOrder, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	ctx := context.Background()

	_, err := f.checkout.CreateCheckout(ctx, CheckoutRequest{
		UserID:   "u1",
		Items:    []domain.CartLine{{ProductID: "p1", Quantity: 1}},
		Shipping: testShipping,
	})
	assert.ErrorIs(t, err, ErrGatewayTimeout)

	orders, err := f.orders.ListOrdersByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusPending, orders[0].Status)
	assert.Empty(t, orders[0].ProviderOrderID)
}

func TestCreateCheckout_GatewayErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"api error", &gateway.APIError{StatusCode: 500}},
		{"breaker open", gobreaker.ErrOpenState},
		{"malformed", gateway.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(product("p1", "100", 5))
			f.gateway.create = func(context.Context, gateway.CreateOrderRequest) (*gateway.ProviderOrder, error) {
				return nil, tt.err
			}

			_, err := f.checkout.CreateCheckout(context.Background(), CheckoutRequest{
				UserID:   "u1",
				Items:    []domain.CartLine{{ProductID: "p1", Quantity: 1}},
				Shipping: testShipping,
			})
			assert.ErrorIs(t, err, ErrGatewayError)
			assert.True(t, errors.Is(err, tt.err))

			stale, err := f.orders.ListStale(context.Background(), domain.OrderStatusPending, time.Now().Add(time.Minute), 10)
			require.NoError(t, err)
			assert.Len(t, stale, 1)
		})
	}
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "created", outcomeOf(nil, "created"))
	assert.Equal(t, "gateway_timeout", outcomeOf(errors.Join(errors.New("x"), ErrGatewayTimeout), "created"))
	assert.Equal(t, "internal", outcomeOf(errors.New("boom"), "created"))
}
