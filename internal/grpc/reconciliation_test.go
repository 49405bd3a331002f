package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/repository"
	"github.com/fjod/artisan/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, orders repository.OrderRepository) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, _ := NewServer(service.NewOrderService(orders, time.Hour))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func seedOrder(t *testing.T, orders repository.OrderRepository, id string, status domain.OrderStatus, age time.Duration) {
	t.Helper()
	require.NoError(t, orders.CreateOrder(context.Background(), &domain.Order{
		ID:        id,
		UserID:    "u1",
		Amount:    decimal.RequireFromString("150.5"),
		Currency:  domain.DefaultCurrency,
		Status:    status,
		CreatedAt: time.Now().UTC().Add(-age),
	}))
}

func TestListStaleOrders(t *testing.T) {
	orders := repository.NewMemoryOrders()
	seedOrder(t, orders, "old", domain.OrderStatusPending, 3*time.Hour)
	seedOrder(t, orders, "older", domain.OrderStatusPending, 5*time.Hour)
	seedOrder(t, orders, "fresh", domain.OrderStatusPending, time.Minute)
	seedOrder(t, orders, "old-failed", domain.OrderStatusFailed, 5*time.Hour)

	client := NewReconciliationClient(startServer(t, orders))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.ListStaleOrders(ctx, &ListStaleOrdersRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "older", resp.Orders[0].ID)
	assert.Equal(t, "old", resp.Orders[1].ID)
	assert.Equal(t, "150.50", resp.Orders[0].Amount)

	resp, err = client.ListStaleOrders(ctx, &ListStaleOrdersRequest{Status: "failed", OlderThanSeconds: 60})
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "old-failed", resp.Orders[0].ID)

	resp, err = client.ListStaleOrders(ctx, &ListStaleOrdersRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Orders, 1)
}

func TestListStaleOrders_InvalidArgument(t *testing.T) {
	client := NewReconciliationClient(startServer(t, repository.NewMemoryOrders()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.ListStaleOrders(ctx, &ListStaleOrdersRequest{Status: "shipped"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ListStaleOrders(ctx, &ListStaleOrdersRequest{Limit: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealthService(t *testing.T) {
	conn := startServer(t, repository.NewMemoryOrders())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ReconciliationServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
