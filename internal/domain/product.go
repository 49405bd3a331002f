package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Photo struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Product is a catalog record. Stock is only ever lowered through the
// conditional decrement in the catalog repository.
type Product struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Photos      []Photo         `json:"photos"`
	Categories  []string        `json:"categories,omitempty"`
	District    string          `json:"district,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CoverPhoto returns the URL of the first photo, or "" when there is none.
func (p *Product) CoverPhoto() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0].URL
}
