package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/artisan/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

const productColumns = `id, owner, title, description, price, stock, photos, categories, district, created_at, updated_at`

// SQLiteCatalogRepository is the single-file catalog backend. Timestamps are
// stored as unix nanoseconds so ordering is numeric.
type SQLiteCatalogRepository struct {
	db *sql.DB
}

func NewSQLiteCatalogRepository(dbPath string) (*SQLiteCatalogRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)
	slog.Info("opened sqlite catalog", "path", dbPath)
	return &SQLiteCatalogRepository{db: db}, nil
}

func (r *SQLiteCatalogRepository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteCatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *SQLiteCatalogRepository) ListProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *SQLiteCatalogRepository) InsertProduct(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	photos, err := json.Marshal(product.Photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}
	categories, err := json.Marshal(product.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Owner,
		product.Title,
		product.Description,
		product.Price.String(),
		product.Stock,
		string(photos),
		string(categories),
		product.District,
		product.CreatedAt.UnixNano(),
		product.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *SQLiteCatalogRepository) DecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?`,
		qty, time.Now().UTC().UnixNano(), id, qty)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	return rowsApplied(res)
}

func (r *SQLiteCatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteCatalogRepository) Close() error {
	return r.db.Close()
}

func scanProduct(s rowScanner) (*domain.Product, error) {
	var (
		p                    domain.Product
		photos, categories   string
		createdAt, updatedAt int64
	)
	err := s.Scan(
		&p.ID,
		&p.Owner,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Stock,
		&photos,
		&categories,
		&p.District,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(photos), &p.Photos); err != nil {
		return nil, fmt.Errorf("decode photos: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &p, nil
}
