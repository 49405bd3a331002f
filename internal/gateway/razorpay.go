package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fjod/artisan/internal/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Breaker   circuitbreaker.Settings
}

// Razorpay talks to a Razorpay-compatible orders API.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*ProviderOrder]
}

func NewRazorpay(cfg RazorpayConfig) *Razorpay {
	return &Razorpay{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[*ProviderOrder]("razorpay", cfg.Breaker, countsAsSuccess),
	}
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

// CreateOrder posts to /v1/orders. Deadlines come from ctx; the caller is
// expected to bound it.
func (r *Razorpay) CreateOrder(ctx context.Context, req CreateOrderRequest) (*ProviderOrder, error) {
	return r.breaker.Execute(func() (*ProviderOrder, error) {
		return r.createOrder(ctx, req)
	})
}

func (r *Razorpay) createOrder(ctx context.Context, req CreateOrderRequest) (*ProviderOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, payload)
	}

	var order ProviderOrder
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedResponse)
	}
	return &order, nil
}

func decodeAPIError(status int, payload []byte) error {
	var envelope struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(payload, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Description = envelope.Error.Description
	}
	return apiErr
}

// countsAsSuccess keeps request-level rejections (bad amount, auth) from
// tripping the breaker. Only gateway-side failures do.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Retryable()
	}
	return false
}
