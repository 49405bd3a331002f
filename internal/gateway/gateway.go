package gateway

import (
	"context"
	"errors"
	"fmt"
)

// CreateOrderRequest asks the gateway for a payment order. Amount is in
// minor units; Receipt carries the local order id.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the payment provider as seen by checkout.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*ProviderOrder, error)
	// KeyID is the public key the client needs to open the payment UI.
	KeyID() string
}

var ErrMalformedResponse = errors.New("malformed gateway response")

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("gateway returned %d (%s): %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("gateway returned %d", e.StatusCode)
}

// Retryable reports whether the failure is on the gateway's side.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
