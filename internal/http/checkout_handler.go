package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/artisan/internal/cache"
	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/service"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

type checkoutCreator interface {
	CreateCheckout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutSession, error)
}

type CheckoutHandler struct {
	checkout    checkoutCreator
	idempotency cache.IdempotencyStore
	timeout     time.Duration
}

// NewCheckoutHandler accepts a nil idempotency store; the header is then ignored.
func NewCheckoutHandler(checkout checkoutCreator, idempotency cache.IdempotencyStore, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:    checkout,
		idempotency: idempotency,
		timeout:     timeout,
	}
}

type CheckoutRequestDTO struct {
	Items       []domain.CartLine `json:"items"`
	HomeAddress string            `json:"home_address"`
	ContactNo   string            `json:"contact_no"`
}

func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, _ := getUserFromContext(r.Context())

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	key := r.Header.Get(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		respondError(w, http.StatusBadRequest, "invalid_input", "Idempotency-Key is too long")
		return
	}
	var fingerprint string
	if key != "" && h.idempotency != nil {
		fingerprint = requestFingerprint(req)
		if h.replay(ctx, w, user.ID, key, fingerprint) {
			return
		}
		reserved, err := h.idempotency.Reserve(ctx, user.ID, key)
		switch {
		case err != nil:
			slog.WarnContext(ctx, "idempotency reserve failed, continuing without", "error", err)
			key = ""
		case !reserved:
			respondError(w, http.StatusConflict, "idempotency_key_in_use", "a request with this Idempotency-Key is in progress")
			return
		default:
			defer h.release(user.ID, key)
			// the previous holder may have saved its response and released
			// the key between our lookup and reserve
			if h.replay(ctx, w, user.ID, key, fingerprint) {
				return
			}
		}
	} else {
		key = ""
	}

	session, err := h.checkout.CreateCheckout(ctx, service.CheckoutRequest{
		UserID: user.ID,
		Items:  req.Items,
		Shipping: domain.ShippingInfo{
			HomeAddress: req.HomeAddress,
			ContactNo:   req.ContactNo,
		},
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if key != "" {
		h.remember(ctx, user.ID, key, fingerprint, session)
	}
	respondJSON(w, http.StatusCreated, session)
}

// replay writes the stored response for key, if any. A key reused with a
// different body is rejected instead of replayed.
func (h *CheckoutHandler) replay(ctx context.Context, w http.ResponseWriter, userID, key, fingerprint string) bool {
	stored, err := h.idempotency.Lookup(ctx, userID, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false
	}
	if err != nil {
		slog.WarnContext(ctx, "idempotency lookup failed", "error", err)
		return false
	}
	if stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
		respondError(w, http.StatusUnprocessableEntity, "idempotency_key_reused",
			"Idempotency-Key was already used with a different request body")
		return true
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return true
}

func (h *CheckoutHandler) remember(ctx context.Context, userID, key, fingerprint string, session *service.CheckoutSession) {
	body, err := json.Marshal(session)
	if err != nil {
		slog.ErrorContext(ctx, "marshal checkout session", "error", err)
		return
	}
	if err := h.idempotency.Save(ctx, userID, key, &cache.StoredResponse{
		Status:      http.StatusCreated,
		Body:        body,
		Fingerprint: fingerprint,
	}); err != nil {
		slog.WarnContext(ctx, "idempotency save failed", "order_id", session.OrderID, "error", err)
	}
}

func (h *CheckoutHandler) release(userID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.idempotency.Release(ctx, userID, key); err != nil {
		slog.Warn("idempotency release failed", "error", err)
	}
}

// requestFingerprint hashes the decoded body, so formatting differences in
// the raw JSON do not count as a different request.
func requestFingerprint(req CheckoutRequestDTO) string {
	canonical, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
