package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/artisan/internal/domain"
)

// MemoryOrders implements OrderRepository with in-memory storage.
// Each method holds the lock for its whole body, which gives the same
// single-operation atomicity the database backends get from conditional updates.
type MemoryOrders struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[string]*domain.Order)}
}

func (s *MemoryOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return ErrDuplicateOrder
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *MemoryOrders) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryOrders) FindByProviderOrderID(_ context.Context, providerOrderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if providerOrderID == "" {
		return nil, ErrOrderNotFound
	}
	for _, o := range s.orders {
		if o.ProviderOrderID == providerOrderID {
			return cloneOrder(o), nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *MemoryOrders) AttachProviderOrderID(_ context.Context, orderID, providerOrderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false, ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusPending || o.ProviderOrderID != "" {
		return false, nil
	}
	o.ProviderOrderID = providerOrderID
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryOrders) TransitionStatus(_ context.Context, orderID string, from, to domain.OrderStatus, fields *domain.PaymentFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false, ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	if fields != nil {
		if fields.ProviderPaymentID != "" {
			o.ProviderPaymentID = fields.ProviderPaymentID
		}
		if fields.ProviderSignature != "" {
			o.ProviderSignature = fields.ProviderSignature
		}
	}
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryOrders) ForceStatus(_ context.Context, orderID string, to domain.OrderStatus) (domain.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return "", ErrOrderNotFound
	}
	prev := o.Status
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return prev, nil
}

func (s *MemoryOrders) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryOrders) ListStale(_ context.Context, status domain.OrderStatus, olderThan time.Time, limit int) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.orders {
		if o.Status == status && o.CreatedAt.Before(olderThan) {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryOrders) Ping(context.Context) error {
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderLineItem(nil), o.Items...)
	return &cp
}
