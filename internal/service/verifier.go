package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/gateway"
	"github.com/fjod/artisan/internal/metrics"
	"github.com/fjod/artisan/internal/publisher"
	"github.com/fjod/artisan/internal/repository"
)

const publishTimeout = 5 * time.Second

type VerifyRequest struct {
	UserID            string
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
}

type VerifyResult struct {
	OK               bool               `json:"ok"`
	OrderID          string             `json:"order_id"`
	AlreadyProcessed bool               `json:"already_processed"`
	Shortfalls       []domain.Shortfall `json:"shortfalls,omitempty"`
}

// PaymentVerifier confirms a signed gateway payment and settles the order.
type PaymentVerifier struct {
	orders    repository.OrderRepository
	inventory *InventoryAdjuster
	signer    *gateway.Signer
	publisher publisher.Publisher
	metrics   *metrics.Metrics
}

func NewPaymentVerifier(
	orders repository.OrderRepository,
	inventory *InventoryAdjuster,
	signer *gateway.Signer,
	pub publisher.Publisher,
	m *metrics.Metrics,
) *PaymentVerifier {
	if pub == nil {
		pub = publisher.NopPublisher{}
	}
	return &PaymentVerifier{
		orders:    orders,
		inventory: inventory,
		signer:    signer,
		publisher: pub,
		metrics:   m,
	}
}

func (v *PaymentVerifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	res, err := v.verify(ctx, req)
	outcome := outcomeOf(err, "paid")
	if err == nil && res.AlreadyProcessed {
		outcome = "already_processed"
	}
	v.metrics.VerificationOutcome(outcome)
	return res, err
}

func (v *PaymentVerifier) verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.ProviderOrderID == "" || req.ProviderPaymentID == "" || req.ProviderSignature == "" {
		return nil, fmt.Errorf("%w: provider order id, payment id and signature are required", ErrInvalidInput)
	}

	order, err := v.orders.FindByProviderOrderID(ctx, req.ProviderOrderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: provider order %s", ErrOrderNotFound, req.ProviderOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	if order.UserID != req.UserID {
		slog.WarnContext(ctx, "payment verification by non-owner",
			"order_id", order.ID,
			"caller", req.UserID)
		return nil, fmt.Errorf("%w: order %s", ErrForbidden, order.ID)
	}

	if order.Status == domain.OrderStatusPaid {
		return &VerifyResult{OK: true, OrderID: order.ID, AlreadyProcessed: true}, nil
	}

	if !v.signer.Verify(req.ProviderOrderID, req.ProviderPaymentID, req.ProviderSignature) {
		failed, err := v.orders.TransitionStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusFailed, nil)
		if err != nil {
			return nil, fmt.Errorf("mark order failed: %w", err)
		}
		slog.WarnContext(ctx, "payment signature mismatch",
			"order_id", order.ID,
			"provider_payment_id", req.ProviderPaymentID,
			"marked_failed", failed)
		return nil, fmt.Errorf("%w: order %s", ErrSignatureMismatch, order.ID)
	}

	fields := &domain.PaymentFields{
		ProviderPaymentID: req.ProviderPaymentID,
		ProviderSignature: req.ProviderSignature,
	}
	applied, err := v.orders.TransitionStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusPaid, fields)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if !applied {
		return v.lostTransition(ctx, order.ID)
	}

	shortfalls := v.settleInventory(ctx, order)
	v.publishPaid(ctx, order, req.ProviderPaymentID, shortfalls)

	slog.InfoContext(ctx, "payment verified",
		"order_id", order.ID,
		"provider_payment_id", req.ProviderPaymentID,
		"shortfalls", len(shortfalls))

	return &VerifyResult{OK: true, OrderID: order.ID, Shortfalls: shortfalls}, nil
}

// lostTransition handles a pending->paid update that matched nothing: either
// a concurrent verification already settled the order, or it left pending
// some other way.
func (v *PaymentVerifier) lostTransition(ctx context.Context, orderID string) (*VerifyResult, error) {
	current, err := v.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	if current.Status == domain.OrderStatusPaid {
		return &VerifyResult{OK: true, OrderID: orderID, AlreadyProcessed: true}, nil
	}
	return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotPending, orderID, current.Status)
}

// settleInventory decrements every line. Failures never undo the payment;
// they are returned so fulfilment can handle them.
func (v *PaymentVerifier) settleInventory(ctx context.Context, order *domain.Order) []domain.Shortfall {
	var shortfalls []domain.Shortfall
	for _, item := range order.Items {
		applied, err := v.inventory.Decrement(ctx, item.ProductID, item.Quantity)
		if err != nil {
			slog.ErrorContext(ctx, "inventory decrement failed",
				"order_id", order.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", err)
		}
		if applied {
			continue
		}
		if err == nil {
			slog.WarnContext(ctx, "inventory shortfall on paid order",
				"order_id", order.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity)
		}
		v.metrics.Shortfall()
		shortfalls = append(shortfalls, domain.Shortfall{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return shortfalls
}

type orderPaidEvent struct {
	OrderID           string                 `json:"order_id"`
	UserID            string                 `json:"user_id"`
	Amount            string                 `json:"amount"`
	Currency          string                 `json:"currency"`
	ProviderOrderID   string                 `json:"provider_order_id"`
	ProviderPaymentID string                 `json:"provider_payment_id"`
	Items             []domain.OrderLineItem `json:"items"`
	PaidAt            time.Time              `json:"paid_at"`
}

type shortfallEvent struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (v *PaymentVerifier) publishPaid(ctx context.Context, order *domain.Order, paymentID string, shortfalls []domain.Shortfall) {
	events := []publisher.Event{{
		Type: publisher.EventOrderPaid,
		Key:  order.ID,
		Payload: orderPaidEvent{
			OrderID:           order.ID,
			UserID:            order.UserID,
			Amount:            order.Amount.String(),
			Currency:          order.Currency,
			ProviderOrderID:   order.ProviderOrderID,
			ProviderPaymentID: paymentID,
			Items:             order.Items,
			PaidAt:            time.Now().UTC(),
		},
	}}
	for _, sf := range shortfalls {
		events = append(events, publisher.Event{
			Type:    publisher.EventInventoryShortfall,
			Key:     order.ID,
			Payload: shortfallEvent{OrderID: order.ID, ProductID: sf.ProductID, Quantity: sf.Quantity},
		})
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := v.publisher.Publish(pubCtx, events...); err != nil {
		slog.ErrorContext(ctx, "publish payment events failed",
			"order_id", order.ID,
			"events", len(events),
			"error", err)
	}
}
