package domain

import "github.com/shopspring/decimal"

// CartLine is one entry of a client-held cart. It carries no price: prices are
// always read from the catalog when the cart is resolved.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ResolvedCart is the priced, stock-checked snapshot of a cart.
type ResolvedCart struct {
	Items  []OrderLineItem
	Amount decimal.Decimal
}
