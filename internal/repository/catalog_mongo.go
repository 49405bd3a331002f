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

type photoDocument struct {
	PublicID string `bson:"public_id"`
	URL      string `bson:"url"`
}

type productDocument struct {
	ID          string               `bson:"_id"`
	Owner       string               `bson:"owner,omitempty"`
	Title       string               `bson:"title"`
	Description string               `bson:"description,omitempty"`
	Price       primitive.Decimal128 `bson:"price"`
	Stock       int                  `bson:"stock"`
	Photos      []photoDocument      `bson:"photos"`
	Categories  []string             `bson:"categories,omitempty"`
	District    string               `bson:"district,omitempty"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type mongoCatalogRepository struct {
	collection *mongo.Collection
}

func NewMongoCatalogRepository(db *mongo.Database) CatalogRepository {
	return &mongoCatalogRepository{
		collection: db.Collection("products"),
	}
}

func (m *mongoCatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var doc productDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toDomain()
}

func (m *mongoCatalogRepository) ListProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]*domain.Product, 0, len(docs))
	for i := range docs {
		p, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (m *mongoCatalogRepository) InsertProduct(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	doc, err := newProductDocument(product)
	if err != nil {
		return err
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *mongoCatalogRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}

	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (m *mongoCatalogRepository) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, nil)
}

func (m *mongoCatalogRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "price", Value: 1}, {Key: "categories", Value: 1}, {Key: "district", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

func newProductDocument(p *domain.Product) (*productDocument, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	photos := make([]photoDocument, len(p.Photos))
	for i, ph := range p.Photos {
		photos[i] = photoDocument{PublicID: ph.PublicID, URL: ph.URL}
	}
	return &productDocument{
		ID:          p.ID,
		Owner:       p.Owner,
		Title:       p.Title,
		Description: p.Description,
		Price:       price,
		Stock:       p.Stock,
		Photos:      photos,
		Categories:  p.Categories,
		District:    p.District,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d *productDocument) toDomain() (*domain.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	photos := make([]domain.Photo, len(d.Photos))
	for i, ph := range d.Photos {
		photos[i] = domain.Photo{PublicID: ph.PublicID, URL: ph.URL}
	}
	return &domain.Product{
		ID:          d.ID,
		Owner:       d.Owner,
		Title:       d.Title,
		Description: d.Description,
		Price:       price,
		Stock:       d.Stock,
		Photos:      photos,
		Categories:  d.Categories,
		District:    d.District,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
