package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/artisan/internal/cache"
	"github.com/fjod/artisan/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Checkout    checkoutCreator
	Verifier    paymentVerifier
	Orders      orderReader
	Admin       orderAdmin
	Catalog     productReader
	Idempotency cache.IdempotencyStore
	Health      map[string]Pinger
	Metrics     *metrics.Metrics

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(d Deps) http.Handler {
	checkoutHandler := NewCheckoutHandler(d.Checkout, d.Idempotency, d.RequestTimeout)
	paymentHandler := NewPaymentHandler(d.Verifier, d.RequestTimeout)
	ordersHandler := NewOrdersHandler(d.Orders, d.RequestTimeout)
	productHandler := NewProductHandler(d.Catalog, d.RequestTimeout)
	adminHandler := NewAdminHandler(d.Admin, d.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(d.Metrics))
	r.Use(middleware.Timeout(d.RequestTimeout))
	if d.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(d.MaxRequestBodySize))
	}
	r.Use(AuthMiddleware)

	r.Get("/health", healthHandler(d.Health))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{product_id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/checkout", checkoutHandler.CreateCheckout)
			r.Post("/payments/verify", paymentHandler.Verify)
			r.Get("/orders", ordersHandler.ListOrders)
			r.Get("/orders/{order_id}", ordersHandler.GetOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Patch("/orders/{order_id}/status", adminHandler.UpdateStatus)
			r.Get("/orders/stale", adminHandler.ListStale)
		})
	})

	return r
}

func healthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		status := http.StatusOK
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				slog.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		respondJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
	}
}
