package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency  = "INR"
	ProviderRazorpay = "razorpay"
)

// OrderLineItem is a snapshot of a product at order creation time.
type OrderLineItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Photo     string          `json:"photo,omitempty"`
}

type ShippingInfo struct {
	HomeAddress string `json:"home_address"`
	ContactNo   string `json:"contact_no"`
}

type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Items             []OrderLineItem `json:"items"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	HomeAddress       string          `json:"home_address"`
	ContactNo         string          `json:"contact_no"`
	Status            OrderStatus     `json:"status"`
	Provider          string          `json:"provider"`
	ProviderOrderID   string          `json:"provider_order_id,omitempty"`
	ProviderPaymentID string          `json:"provider_payment_id,omitempty"`
	ProviderSignature string          `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// PaymentFields are recorded on an order together with a status transition.
type PaymentFields struct {
	ProviderPaymentID string
	ProviderSignature string
}

// ToMinorUnits converts a major-unit amount into the gateway's minor units
// (paise for INR), rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
