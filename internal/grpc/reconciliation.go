package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ReconciliationServiceName = "storefront.v1.Reconciliation"
	listStaleOrdersMethod     = "/" + ReconciliationServiceName + "/ListStaleOrders"
)

type ListStaleOrdersRequest struct {
	Status           string `json:"status,omitempty"`
	OlderThanSeconds int64  `json:"older_than_seconds,omitempty"`
	Limit            int32  `json:"limit,omitempty"`
}

type StaleOrder struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ProviderOrderID string `json:"provider_order_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type ListStaleOrdersResponse struct {
	Orders []*StaleOrder `json:"orders"`
}

type ReconciliationServer interface {
	ListStaleOrders(ctx context.Context, req *ListStaleOrdersRequest) (*ListStaleOrdersResponse, error)
}

type staleLister interface {
	ListStale(ctx context.Context, q service.StaleQuery) ([]*domain.Order, error)
}

type ReconciliationHandler struct {
	orders staleLister
}

func NewReconciliationHandler(orders staleLister) *ReconciliationHandler {
	return &ReconciliationHandler{orders: orders}
}

func (h *ReconciliationHandler) ListStaleOrders(ctx context.Context, req *ListStaleOrdersRequest) (*ListStaleOrdersResponse, error) {
	orders, err := h.orders.ListStale(ctx, service.StaleQuery{
		Status:    domain.OrderStatus(req.Status),
		OlderThan: time.Duration(req.OlderThanSeconds) * time.Second,
		Limit:     int(req.Limit),
	})
	if err != nil {
		return nil, mapServiceError(ctx, err)
	}

	out := make([]*StaleOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, convertOrder(o))
	}
	return &ListStaleOrdersResponse{Orders: out}, nil
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	slog.ErrorContext(ctx, "reconciliation call failed", "error", err)
	return status.Errorf(codes.Internal, "failed to list stale orders: %v", err)
}

func convertOrder(o *domain.Order) *StaleOrder {
	return &StaleOrder{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Amount:          o.Amount.StringFixed(2),
		Currency:        o.Currency,
		ProviderOrderID: o.ProviderOrderID,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

func listStaleOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListStaleOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationServer).ListStaleOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listStaleOrdersMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationServer).ListStaleOrders(ctx, req.(*ListStaleOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ReconciliationServiceDesc is registered without a proto file; messages
// travel with the json codec.
var ReconciliationServiceDesc = grpc.ServiceDesc{
	ServiceName: ReconciliationServiceName,
	HandlerType: (*ReconciliationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListStaleOrders", Handler: listStaleOrdersHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterReconciliationServer(s grpc.ServiceRegistrar, srv ReconciliationServer) {
	s.RegisterService(&ReconciliationServiceDesc, srv)
}

// ReconciliationClient is used by the external reconciliation job.
type ReconciliationClient struct {
	cc grpc.ClientConnInterface
}

func NewReconciliationClient(cc grpc.ClientConnInterface) *ReconciliationClient {
	return &ReconciliationClient{cc: cc}
}

func (c *ReconciliationClient) ListStaleOrders(ctx context.Context, in *ListStaleOrdersRequest, opts ...grpc.CallOption) (*ListStaleOrdersResponse, error) {
	out := new(ListStaleOrdersResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, listStaleOrdersMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
