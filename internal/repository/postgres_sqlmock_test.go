package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fjod/artisan/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresOrderRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresOrderRepositoryFromDB(db), mock
}

func TestPostgresTransitionStatus_GuardsOnFromStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()

	mock.ExpectExec(`UPDATE orders SET status = \$3`).
		WithArgs(id, "pending", "paid", "pay_1", "sig_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`WHERE id = \$1 AND status = \$2`).
		WithArgs(id, "pending", "paid", "pay_1", "sig_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	fields := &domain.PaymentFields{ProviderPaymentID: "pay_1", ProviderSignature: "sig_1"}

	ok, err := repo.TransitionStatus(context.Background(), id, domain.OrderStatusPending, domain.OrderStatusPaid, fields)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(context.Background(), id, domain.OrderStatusPending, domain.OrderStatusPaid, fields)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateOrder_UniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	order := newTestOrder(uuid.NewString(), "u1")

	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateOrder(context.Background(), order)
	assert.ErrorIs(t, err, ErrDuplicateOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetOrderByID_InvalidIDSkipsQuery(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.GetOrderByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresForceStatus_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()

	mock.ExpectQuery(`RETURNING prev.status`).
		WithArgs(id, "cancelled").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ForceStatus(context.Background(), id, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByProviderOrderID_ScansNullableColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.NewString()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM orders WHERE provider_order_id = \$1`).
		WithArgs("order_1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "items", "amount", "currency", "home_address", "contact_no", "status", "provider",
			"provider_order_id", "provider_payment_id", "provider_signature", "created_at", "updated_at",
		}).AddRow(
			id, "u1", []byte(`[{"product_id":"p1","title":"Mug","price":"100","quantity":2,"subtotal":"200"}]`),
			"200.00", "INR", "12 Lake Road", "9800000000", "pending", "razorpay",
			"order_1", nil, nil, createdAt, createdAt,
		))

	got, err := repo.FindByProviderOrderID(context.Background(), "order_1")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Equal(t, "order_1", got.ProviderOrderID)
	assert.Empty(t, got.ProviderPaymentID)
	assert.Equal(t, "200", got.Amount.String())
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
