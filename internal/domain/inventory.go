package domain

// Shortfall is a paid line item whose stock could not be decremented.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
