package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/go-chi/chi/v5"
)

type orderReader interface {
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  orderReader
	timeout time.Duration
}

func NewOrdersHandler(orders orderReader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout}
}

type ListOrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, _ := getUserFromContext(r.Context())

	orders, err := h.orders.ListOrders(ctx, user.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, ListOrdersResponse{Orders: orders})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, _ := getUserFromContext(r.Context())

	order, err := h.orders.GetOrder(ctx, user.ID, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
