package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/repository"
)

const (
	DefaultStaleLimit = 100
	MaxStaleLimit     = 1000
)

// OrderService covers order reads, the admin status override and the
// stale-order query used by reconciliation.
type OrderService struct {
	orders       repository.OrderRepository
	abandonAfter time.Duration
	now          func() time.Time
}

func NewOrderService(orders repository.OrderRepository, abandonAfter time.Duration) *OrderService {
	return &OrderService{
		orders:       orders,
		abandonAfter: abandonAfter,
		now:          time.Now,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrForbidden, orderID)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ForceStatus is the admin side channel. It bypasses the payment state
// machine and is always logged.
func (s *OrderService) ForceStatus(ctx context.Context, adminID, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	prev, err := s.orders.ForceStatus(ctx, orderID, status)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("force status: %w", err)
	}

	slog.WarnContext(ctx, "order status overridden by admin",
		"order_id", orderID,
		"admin_id", adminID,
		"from", prev.String(),
		"to", status.String(),
		"in_state_machine", domain.CanTransitionTo(prev, status))

	return s.load(ctx, orderID)
}

type StaleQuery struct {
	Status    domain.OrderStatus
	OlderThan time.Duration
	Limit     int
}

// ListStale returns orders stuck in a status for longer than the threshold,
// oldest first. Zero values fall back to pending, the configured abandonment
// window and DefaultStaleLimit.
func (s *OrderService) ListStale(ctx context.Context, q StaleQuery) ([]*domain.Order, error) {
	if q.Status == "" {
		q.Status = domain.OrderStatusPending
	}
	if !q.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, q.Status)
	}
	if q.OlderThan < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("%w: age and limit must not be negative", ErrInvalidInput)
	}
	if q.OlderThan == 0 {
		q.OlderThan = s.abandonAfter
	}
	if q.Limit == 0 {
		q.Limit = DefaultStaleLimit
	}
	if q.Limit > MaxStaleLimit {
		q.Limit = MaxStaleLimit
	}

	cutoff := s.now().UTC().Add(-q.OlderThan)
	orders, err := s.orders.ListStale(ctx, q.Status, cutoff, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) load(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}
