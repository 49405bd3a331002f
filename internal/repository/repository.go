package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/artisan/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order already exists")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Credentials locate the Postgres order ledger and its migrations.
type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CatalogRepository is the product store. DecrementStock is the only write
// that touches stock after a product is created.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, limit int) ([]*domain.Product, error)
	InsertProduct(ctx context.Context, product *domain.Product) error

	// DecrementStock lowers stock by qty in a single conditional update that
	// only applies while stock >= qty. It reports whether the update applied.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)

	Ping(ctx context.Context) error
}

// OrderRepository is the order ledger. Status changes go through
// TransitionStatus, which only applies when the stored status still equals
// from, so concurrent callers cannot both observe and act on the same state.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error)

	// AttachProviderOrderID records the gateway order id on a pending order
	// that has none yet.
	AttachProviderOrderID(ctx context.Context, orderID, providerOrderID string) (bool, error)

	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, fields *domain.PaymentFields) (bool, error)

	// ForceStatus sets the status unconditionally and returns the previous one.
	ForceStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.OrderStatus, error)

	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)

	// ListStale returns orders in status created before olderThan, oldest first.
	ListStale(ctx context.Context, status domain.OrderStatus, olderThan time.Time, limit int) ([]*domain.Order, error)

	Ping(ctx context.Context) error
}
