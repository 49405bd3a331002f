package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/go-chi/chi/v5"
)

type productReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, limit int) ([]*domain.Product, error)
}

type ProductHandler struct {
	catalog productReader
	timeout time.Duration
}

func NewProductHandler(catalog productReader, timeout time.Duration) *ProductHandler {
	return &ProductHandler{catalog: catalog, timeout: timeout}
}

type ListProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	products, err := h.catalog.ListProducts(ctx, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, ListProductsResponse{Products: products})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}
