package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/artisan/internal/cache"
	"github.com/fjod/artisan/internal/publisher"
	"github.com/segmentio/kafka-go"
)

const readRetryDelay = time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// paidOrder is the subset of the order.paid payload needed here.
type paidOrder struct {
	OrderID string `json:"order_id"`
	Items   []struct {
		ProductID string `json:"product_id"`
	} `json:"items"`
}

// CacheInvalidator evicts cached products once a paid order has lowered
// their stock, so catalog reads stop serving the old count.
type CacheInvalidator struct {
	cache      cache.ProductCache
	reader     messageReader
	retryDelay time.Duration
}

func NewCacheInvalidator(productCache cache.ProductCache, topic string, brokers ...string) *CacheInvalidator {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront-cache-invalidator",
		MaxBytes: 10e6, // 10MB
	})
	return &CacheInvalidator{cache: productCache, reader: reader, retryDelay: readRetryDelay}
}

func (c *CacheInvalidator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			slog.ErrorContext(ctx, "error reading message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if err := c.handle(ctx, m); err != nil {
			slog.ErrorContext(ctx, "cache invalidation failed",
				"offset", m.Offset,
				"error", err)
		}
	}
}

func (c *CacheInvalidator) Close() error {
	return c.reader.Close()
}

func (c *CacheInvalidator) handle(ctx context.Context, m kafka.Message) error {
	if eventType(m) != publisher.EventOrderPaid {
		return nil
	}

	var event paidOrder
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("parse order.paid event: %w", err)
	}

	var errs []error
	for _, item := range event.Items {
		if err := c.cache.Delete(ctx, item.ProductID); err != nil {
			errs = append(errs, fmt.Errorf("evict product %s: %w", item.ProductID, err))
		}
	}
	slog.DebugContext(ctx, "evicted products for paid order",
		"order_id", event.OrderID,
		"products", len(event.Items))
	return errors.Join(errs...)
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == publisher.HeaderEventType {
			return string(h.Value)
		}
	}
	return ""
}
