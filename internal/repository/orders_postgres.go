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
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderColumns = `id, user_id, items, amount, currency, home_address, contact_no, status, provider,
	provider_order_id, provider_payment_id, provider_signature, created_at, updated_at`

// PostgresOrderRepository is the SQL order ledger.
type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(cred *Credentials) (*PostgresOrderRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	slog.Info("connected to postgres", "host", cred.Host, "db", cred.DBName)
	return NewPostgresOrderRepositoryFromDB(db), nil
}

func NewPostgresOrderRepositoryFromDB(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		itemsJSON,
		order.Amount,
		order.Currency,
		order.HomeAddress,
		order.ContactNo,
		order.Status.String(),
		order.Provider,
		nullString(order.ProviderOrderID),
		nullString(order.ProviderPaymentID),
		nullString(order.ProviderSignature),
		order.CreatedAt,
		order.UpdatedAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *PostgresOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresOrderRepository) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	if providerOrderID == "" {
		return nil, ErrOrderNotFound
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE provider_order_id = $1`
	return r.queryOne(ctx, query, providerOrderID)
}

func (r *PostgresOrderRepository) queryOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (r *PostgresOrderRepository) AttachProviderOrderID(ctx context.Context, orderID, providerOrderID string) (bool, error) {
	query := `UPDATE orders SET provider_order_id = $2, updated_at = NOW()
	          WHERE id = $1 AND status = 'pending' AND provider_order_id IS NULL`

	res, err := r.db.ExecContext(ctx, query, orderID, providerOrderID)
	if err != nil {
		return false, fmt.Errorf("attach provider order id: %w", err)
	}
	return rowsApplied(res)
}

func (r *PostgresOrderRepository) TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, fields *domain.PaymentFields) (bool, error) {
	var paymentID, signature string
	if fields != nil {
		paymentID = fields.ProviderPaymentID
		signature = fields.ProviderSignature
	}

	query := `UPDATE orders SET status = $3,
	              provider_payment_id = COALESCE(NULLIF($4, ''), provider_payment_id),
	              provider_signature = COALESCE(NULLIF($5, ''), provider_signature),
	              updated_at = NOW()
	          WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, orderID, from.String(), to.String(), paymentID, signature)
	if err != nil {
		return false, fmt.Errorf("transition order status: %w", err)
	}
	return rowsApplied(res)
}

func (r *PostgresOrderRepository) ForceStatus(ctx context.Context, orderID string, to domain.OrderStatus) (domain.OrderStatus, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return "", ErrOrderNotFound
	}

	query := `UPDATE orders o SET status = $2, updated_at = NOW()
	          FROM (SELECT id, status FROM orders WHERE id = $1 FOR UPDATE) prev
	          WHERE o.id = prev.id
	          RETURNING prev.status`

	var prev string
	err := r.db.QueryRowContext(ctx, query, orderID, to.String()).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("force order status: %w", err)
	}
	return domain.OrderStatus(prev), nil
}

func (r *PostgresOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryMany(ctx, query, userID)
}

func (r *PostgresOrderRepository) ListStale(ctx context.Context, status domain.OrderStatus, olderThan time.Time, limit int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE status = $1 AND created_at < $2
	          ORDER BY created_at ASC LIMIT $3`
	return r.queryMany(ctx, query, status.String(), olderThan, limit)
}

func (r *PostgresOrderRepository) queryMany(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *PostgresOrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresOrderRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON []byte
	var status string
	var providerOrderID, providerPaymentID, providerSignature sql.NullString

	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&order.Amount,
		&order.Currency,
		&order.HomeAddress,
		&order.ContactNo,
		&status,
		&order.Provider,
		&providerOrderID,
		&providerPaymentID,
		&providerSignature,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	order.ProviderOrderID = providerOrderID.String
	order.ProviderPaymentID = providerPaymentID.String
	order.ProviderSignature = providerSignature.String
	return &order, nil
}

func rowsApplied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
