package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/service"
	"github.com/go-chi/chi/v5"
)

type orderAdmin interface {
	ForceStatus(ctx context.Context, adminID, orderID string, status domain.OrderStatus) (*domain.Order, error)
	ListStale(ctx context.Context, q service.StaleQuery) ([]*domain.Order, error)
}

type AdminHandler struct {
	orders  orderAdmin
	timeout time.Duration
}

func NewAdminHandler(orders orderAdmin, timeout time.Duration) *AdminHandler {
	return &AdminHandler{orders: orders, timeout: timeout}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	admin, _ := getUserFromContext(r.Context())

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	order, err := h.orders.ForceStatus(ctx, admin.ID, chi.URLParam(r, "order_id"), req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type StaleOrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// ListStale accepts ?status=, ?older_than= (Go duration) and ?limit=.
func (h *AdminHandler) ListStale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	query := service.StaleQuery{Status: domain.OrderStatus(q.Get("status"))}

	if raw := q.Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_input", "older_than must be a duration such as 24h")
			return
		}
		query.OlderThan = d
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer")
			return
		}
		query.Limit = n
	}

	orders, err := h.orders.ListStale(ctx, query)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, StaleOrdersResponse{Orders: orders})
}
