package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/artisan/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{service.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{service.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrSignatureMismatch, http.StatusBadRequest, "signature_mismatch"},
	{service.ErrOrderNotPending, http.StatusConflict, "order_not_pending"},
	{service.ErrGatewayTimeout, http.StatusGatewayTimeout, "gateway_timeout"},
	{service.ErrGatewayError, http.StatusBadGateway, "gateway_error"},
}

// handleServiceError maps service error kinds to a status and stable code.
// Anything unrecognised is logged and reported as a bare 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			respondError(w, k.status, k.code, err.Error())
			return
		}
	}
	slog.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	respondError(w, http.StatusInternalServerError, "internal", "internal server error")
}
