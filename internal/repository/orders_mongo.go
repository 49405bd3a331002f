package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type lineItemDocument struct {
	ProductID string               `bson:"product_id"`
	Title     string               `bson:"title"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	Subtotal  primitive.Decimal128 `bson:"subtotal"`
	Photo     string               `bson:"photo,omitempty"`
}

type orderDocument struct {
	ID                string               `bson:"_id"`
	UserID            string               `bson:"user_id"`
	Items             []lineItemDocument   `bson:"items"`
	Amount            primitive.Decimal128 `bson:"amount"`
	Currency          string               `bson:"currency"`
	HomeAddress       string               `bson:"home_address"`
	ContactNo         string               `bson:"contact_no"`
	Status            string               `bson:"status"`
	Provider          string               `bson:"provider"`
	ProviderOrderID   string               `bson:"provider_order_id,omitempty"`
	ProviderPaymentID string               `bson:"provider_payment_id,omitempty"`
	ProviderSignature string               `bson:"provider_signature,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	doc, err := newOrderDocument(order)
	if err != nil {
		return err
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoOrderRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	if providerOrderID == "" {
		return nil, ErrOrderNotFound
	}
	return m.findOne(ctx, bson.M{"provider_order_id": providerOrderID})
}

func (m *mongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoOrderRepository) AttachProviderOrderID(ctx context.Context, orderID, providerOrderID string) (bool, error) {
	filter := bson.M{
		"_id":               orderID,
		"status":            domain.OrderStatusPending.String(),
		"provider_order_id": bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			"provider_order_id": providerOrderID,
			"updated_at":        time.Now().UTC(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to attach provider order id: %w", err)
	}
	return result.MatchedCount == 1, nil
}

func (m *mongoOrderRepository) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, fields *domain.PaymentFields) (bool, error) {
	set := bson.M{
		"status":     to.String(),
		"updated_at": time.Now().UTC(),
	}
	if fields != nil {
		if fields.ProviderPaymentID != "" {
			set["provider_payment_id"] = fields.ProviderPaymentID
		}
		if fields.ProviderSignature != "" {
			set["provider_signature"] = fields.ProviderSignature
		}
	}

	filter := bson.M{"_id": orderID, "status": from.String()}
	result, err := m.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}
	return result.MatchedCount == 1, nil
}

func (m *mongoOrderRepository) ForceStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.OrderStatus, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"status": 1})
	update := bson.M{"$set": bson.M{"status": to.String(), "updated_at": time.Now().UTC()}}

	var prev struct {
		Status string `bson:"status"`
	}
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": orderID}, update, opts).Decode(&prev)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("failed to force order status: %w", err)
	}
	return domain.OrderStatus(prev.Status), nil
}

func (m *mongoOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.find(ctx, bson.M{"user_id": userID}, opts)
}

func (m *mongoOrderRepository) ListStale(ctx context.Context, status domain.OrderStatus, olderThan time.Time, limit int) ([]*domain.Order, error) {
	filter := bson.M{
		"status":     status.String(),
		"created_at": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return m.find(ctx, filter, opts)
}

func (m *mongoOrderRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (m *mongoOrderRepository) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, nil)
}

// CreateIndexes creates the lookup indexes used by verification, order
// history and the stale-order query.
func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "provider_order_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"provider_order_id": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func newOrderDocument(o *domain.Order) (*orderDocument, error) {
	amount, err := toDecimal128(o.Amount)
	if err != nil {
		return nil, err
	}
	items := make([]lineItemDocument, len(o.Items))
	for i, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		subtotal, err := toDecimal128(it.Subtotal)
		if err != nil {
			return nil, err
		}
		items[i] = lineItemDocument{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     price,
			Quantity:  it.Quantity,
			Subtotal:  subtotal,
			Photo:     it.Photo,
		}
	}
	return &orderDocument{
		ID:                o.ID,
		UserID:            o.UserID,
		Items:             items,
		Amount:            amount,
		Currency:          o.Currency,
		HomeAddress:       o.HomeAddress,
		ContactNo:         o.ContactNo,
		Status:            o.Status.String(),
		Provider:          o.Provider,
		ProviderOrderID:   o.ProviderOrderID,
		ProviderPaymentID: o.ProviderPaymentID,
		ProviderSignature: o.ProviderSignature,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}, nil
}

func (d *orderDocument) toDomain() (*domain.Order, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderLineItem, len(d.Items))
	for i, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		subtotal, err := fromDecimal128(it.Subtotal)
		if err != nil {
			return nil, err
		}
		items[i] = domain.OrderLineItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     price,
			Quantity:  it.Quantity,
			Subtotal:  subtotal,
			Photo:     it.Photo,
		}
	}
	return &domain.Order{
		ID:                d.ID,
		UserID:            d.UserID,
		Items:             items,
		Amount:            amount,
		Currency:          d.Currency,
		HomeAddress:       d.HomeAddress,
		ContactNo:         d.ContactNo,
		Status:            domain.OrderStatus(d.Status),
		Provider:          d.Provider,
		ProviderOrderID:   d.ProviderOrderID,
		ProviderPaymentID: d.ProviderPaymentID,
		ProviderSignature: d.ProviderSignature,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}
