package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/diet-horizon/apiserver/types"
)

// CartRepository handles persistence for cart snapshots. Snapshots are
// insert-only: there are no update operations by design.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Create inserts the snapshot and its line items in a single transaction.
func (r *CartRepository) Create(ctx context.Context, cart types.Cart) (types.Cart, error) {
	cart.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Cart{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const cartQuery = `
		INSERT INTO carts (user_id, created_at)
		VALUES ($1, $2)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, cartQuery, cart.UserID, cart.CreatedAt).Scan(&cart.ID); err != nil {
		return types.Cart{}, translate(err)
	}

	const itemQuery = `
		INSERT INTO cart_items (cart_id, position, product_ref, name, image, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, item := range cart.Items {
		if _, err := tx.ExecContext(
			ctx,
			itemQuery,
			cart.ID,
			i,
			item.ProductRef,
			item.Name,
			item.Image,
			item.Quantity,
			item.Price,
		); err != nil {
			return types.Cart{}, translate(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Cart{}, err
	}

	cart.TotalPrice = cart.ComputeTotal()
	return cart, nil
}

// Get returns the snapshot with its items attached and total computed.
func (r *CartRepository) Get(ctx context.Context, id int) (types.Cart, error) {
	const query = `
		SELECT id, user_id, created_at
		FROM carts
		WHERE id = $1`
	var cart types.Cart
	err := r.db.QueryRowContext(ctx, query, id).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Cart{}, ErrNotFound
		}
		return types.Cart{}, err
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return types.Cart{}, err
	}
	cart.Items = items
	cart.TotalPrice = cart.ComputeTotal()
	return cart, nil
}

// GetMany returns the snapshots for the given IDs, keyed by cart ID.
func (r *CartRepository) GetMany(ctx context.Context, ids []int) (map[int]types.Cart, error) {
	carts := make(map[int]types.Cart, len(ids))
	for _, id := range ids {
		if _, ok := carts[id]; ok {
			continue
		}
		cart, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		carts[id] = cart
	}
	return carts, nil
}

func (r *CartRepository) items(ctx context.Context, cartID int) ([]types.CartItem, error) {
	const query = `
		SELECT product_ref, name, image, quantity, price
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.CartItem
	for rows.Next() {
		var item types.CartItem
		if err := rows.Scan(&item.ProductRef, &item.Name, &item.Image, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
