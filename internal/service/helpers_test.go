package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/fjod/artisan/internal/gateway"
	"github.com/fjod/artisan/internal/publisher"
	"github.com/fjod/artisan/internal/repository"
	"github.com/shopspring/decimal"
)

const testSecret = "s3cret"

type fakeGateway struct {
	calls  atomic.Int32
	create func(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.ProviderOrder, error)
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.ProviderOrder, error) {
	n := g.calls.Add(1)
	if g.create != nil {
		return g.create(ctx, req)
	}
	return &gateway.ProviderOrder{
		ID:       "order_" + string(rune('A'+n-1)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type capturePublisher struct {
	mu     sync.Mutex
	events []publisher.Event
}

func (p *capturePublisher) Publish(_ context.Context, events ...publisher.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	catalog   *repository.MemoryCatalog
	orders    *repository.MemoryOrders
	gateway   *fakeGateway
	publisher *capturePublisher
	signer    *gateway.Signer
	checkout  *CheckoutService
	verifier  *PaymentVerifier
}

func newFixture(products ...*domain.Product) *fixture {
	f := &fixture{
		catalog:   repository.NewMemoryCatalog(products...),
		orders:    repository.NewMemoryOrders(),
		gateway:   &fakeGateway{},
		publisher: &capturePublisher{},
		signer:    gateway.NewSigner(testSecret),
	}
	f.checkout = NewCheckoutService(NewCartResolver(f.catalog), f.orders, f.gateway, time.Second, nil)
	f.verifier = NewPaymentVerifier(f.orders, NewInventoryAdjuster(f.catalog), f.signer, f.publisher, nil)
	return f
}

func product(id string, price string, stock int) *domain.Product {
	return &domain.Product{
		ID:     id,
		Title:  "Product " + id,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Photos: []domain.Photo{{PublicID: id, URL: "https://cdn.example/" + id + ".jpg"}},
	}
}

var testShipping = domain.ShippingInfo{HomeAddress: "221B Baker Street", ContactNo: "9800000000"}
