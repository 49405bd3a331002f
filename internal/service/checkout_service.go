package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/gateway"
	"github.com/fjod/artisan/internal/metrics"
	"github.com/fjod/artisan/internal/repository"
	"github.com/google/uuid"
)

type CheckoutRequest struct {
	UserID   string
	Items    []domain.CartLine
	Shipping domain.ShippingInfo
}

// CheckoutSession is what the client needs to open the gateway's payment UI.
type CheckoutSession struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	ProviderKey     string `json:"provider_key"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type CheckoutService struct {
	resolver *CartResolver
	orders   repository.OrderRepository
	gateway  gateway.Gateway
	timeout  time.Duration
	metrics  *metrics.Metrics
}

func NewCheckoutService(
	resolver *CartResolver,
	orders repository.OrderRepository,
	gw gateway.Gateway,
	gatewayTimeout time.Duration,
	m *metrics.Metrics,
) *CheckoutService {
	return &CheckoutService{
		resolver: resolver,
		orders:   orders,
		gateway:  gw,
		timeout:  gatewayTimeout,
		metrics:  m,
	}
}

// CreateCheckout persists a pending order for the resolved cart and opens a
// gateway order for it. A gateway failure leaves the order pending so it
// stays visible to reconciliation.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	session, err := s.createCheckout(ctx, req)
	s.metrics.CheckoutOutcome(outcomeOf(err, "created"))
	return session, err
}

func (s *CheckoutService) createCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	shipping := domain.ShippingInfo{
		HomeAddress: strings.TrimSpace(req.Shipping.HomeAddress),
		ContactNo:   strings.TrimSpace(req.Shipping.ContactNo),
	}
	if shipping.HomeAddress == "" || shipping.ContactNo == "" {
		return nil, fmt.Errorf("%w: home address and contact number are required", ErrInvalidInput)
	}

	cart, err := s.resolver.Resolve(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Items:       cart.Items,
		Amount:      cart.Amount,
		Currency:    domain.DefaultCurrency,
		HomeAddress: shipping.HomeAddress,
		ContactNo:   shipping.ContactNo,
		Status:      domain.OrderStatusPending,
		Provider:    domain.ProviderRazorpay,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	minor := domain.ToMinorUnits(order.Amount)
	providerOrder, err := s.openGatewayOrder(ctx, order, minor)
	if err != nil {
		slog.WarnContext(ctx, "gateway order failed, order left pending",
			"order_id", order.ID,
			"user_id", order.UserID,
			"error", err)
		return nil, err
	}

	attached, err := s.orders.AttachProviderOrderID(ctx, order.ID, providerOrder.ID)
	if err != nil {
		return nil, fmt.Errorf("record provider order id: %w", err)
	}
	if !attached {
		return nil, fmt.Errorf("%w: order %s changed before provider order id was recorded", ErrOrderNotPending, order.ID)
	}

	slog.InfoContext(ctx, "checkout created",
		"order_id", order.ID,
		"provider_order_id", providerOrder.ID,
		"amount", order.Amount.String(),
		"items", len(order.Items))

	return &CheckoutSession{
		OrderID:         order.ID,
		ProviderOrderID: providerOrder.ID,
		ProviderKey:     s.gateway.KeyID(),
		Amount:          minor,
		Currency:        order.Currency,
	}, nil
}

func (s *CheckoutService) openGatewayOrder(ctx context.Context, order *domain.Order, minor int64) (*gateway.ProviderOrder, error) {
	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	providerOrder, err := s.gateway.CreateOrder(gwCtx, gateway.CreateOrderRequest{
		Amount:   minor,
		Currency: order.Currency,
		Receipt:  order.ID,
		Notes:    map[string]string{"user_id": order.UserID},
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.metrics.GatewayCall("ok", elapsed)
		return providerOrder, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(gwCtx.Err(), context.DeadlineExceeded):
		s.metrics.GatewayCall("timeout", elapsed)
		return nil, fmt.Errorf("%w: order %s: %w", ErrGatewayTimeout, order.ID, err)
	default:
		s.metrics.GatewayCall("error", elapsed)
		return nil, fmt.Errorf("%w: order %s: %w", ErrGatewayError, order.ID, err)
	}
}

// outcomeOf turns an error into a low-cardinality metric label.
func outcomeOf(err error, success string) string {
	kinds := []struct {
		err   error
		label string
	}{
		{ErrInvalidInput, "invalid_input"},
		{ErrProductNotFound, "product_not_found"},
		{ErrInsufficientStock, "insufficient_stock"},
		{ErrOrderNotFound, "order_not_found"},
		{ErrForbidden, "forbidden"},
		{ErrSignatureMismatch, "signature_mismatch"},
		{ErrOrderNotPending, "order_not_pending"},
		{ErrGatewayTimeout, "gateway_timeout"},
		{ErrGatewayError, "gateway_error"},
	}
	if err == nil {
		return success
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "internal"
}
