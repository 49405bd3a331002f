package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/artisan/internal/service"
)

type paymentVerifier interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*service.VerifyResult, error)
}

type PaymentHandler struct {
	verifier paymentVerifier
	timeout  time.Duration
}

func NewPaymentHandler(verifier paymentVerifier, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{verifier: verifier, timeout: timeout}
}

// VerifyPaymentDTO accepts both the neutral field names and the names the
// Razorpay checkout widget hands back to the browser.
type VerifyPaymentDTO struct {
	ProviderOrderID   string `json:"provider_order_id"`
	ProviderPaymentID string `json:"provider_payment_id"`
	ProviderSignature string `json:"provider_signature"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (d VerifyPaymentDTO) toRequest(userID string) service.VerifyRequest {
	return service.VerifyRequest{
		UserID:            userID,
		ProviderOrderID:   firstNonEmpty(d.ProviderOrderID, d.RazorpayOrderID),
		ProviderPaymentID: firstNonEmpty(d.ProviderPaymentID, d.RazorpayPaymentID),
		ProviderSignature: firstNonEmpty(d.ProviderSignature, d.RazorpaySignature),
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, _ := getUserFromContext(r.Context())

	var req VerifyPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	res, err := h.verifier.Verify(ctx, req.toRequest(user.ID))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
