package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/diet-horizon/apiserver/types"
)

// OrderRepository handles persistence for orders.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, cart_id, total_price, status, payment_method, payment_status, shipping_address, created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, order types.Order) (types.Order, error) {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	const query = `
		INSERT INTO orders (user_id, cart_id, total_price, status, payment_method, payment_status, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		order.UserID,
		order.CartID,
		order.TotalPrice,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		order.ShippingAddress,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID); err != nil {
		return types.Order{}, translate(err)
	}
	return order, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int) (types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}
	return order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]types.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// UpdateStatuses writes the order's status and payment status.
func (r *OrderRepository) UpdateStatuses(ctx context.Context, id int, status, paymentStatus string) (types.Order, error) {
	const query = `
		UPDATE orders
		SET status = $1, payment_status = $2, updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, status, paymentStatus, time.Now(), id)
	if err != nil {
		return types.Order{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Order{}, err
	}
	if affected == 0 {
		return types.Order{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]types.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []types.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (types.Order, error) {
	var order types.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.CartID,
		&order.TotalPrice,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}
