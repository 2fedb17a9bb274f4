package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cart-coupons/internal/domain/cart"
)

const (
	getCartByIDSQL = `SELECT id, items, total_price, total_discount, total_quantity,
		COALESCE(applied_coupon_id, ''), version
		FROM carts WHERE id = $1`

	createCartSQL = `INSERT INTO carts (id, items, total_price, total_discount, total_quantity, applied_coupon_id, version)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), 1)`

	saveCartSQL = `UPDATE carts SET
			items = $2,
			total_price = $3,
			total_discount = $4,
			total_quantity = $5,
			applied_coupon_id = NULLIF($6, ''),
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $7`

	cartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Items are
// stored as JSONB; writes are guarded by the version column.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetByID returns a single cart by its identifier.
func (r *CartRepository) GetByID(ctx context.Context, id string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	return &c, nil
}

// Create persists a new cart at version 1.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := marshalItems(c.Items)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createCartSQL,
		c.ID, itemsJSON, c.TotalPrice, c.TotalDiscount, c.TotalQuantity, c.AppliedCouponID,
	)
	if err != nil {
		return fmt.Errorf("creating cart %q: %w", c.ID, err)
	}
	c.Version = 1
	return nil
}

// Save updates the cart when its version matches and bumps c.Version.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := marshalItems(c.Items)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, saveCartSQL,
		c.ID, itemsJSON, c.TotalPrice, c.TotalDiscount, c.TotalQuantity, c.AppliedCouponID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 1 {
		c.Version++
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, cartExistsSQL, c.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking cart %q: %w", c.ID, err)
	}
	if !exists {
		return cart.ErrNotFound
	}
	return cart.ErrVersionConflict
}

func marshalItems(items []cart.Item) ([]byte, error) {
	if items == nil {
		items = []cart.Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshaling cart items: %w", err)
	}
	return b, nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c         cart.Cart
		itemsJSON []byte
	)
	err := row.Scan(&c.ID, &itemsJSON, &c.TotalPrice, &c.TotalDiscount, &c.TotalQuantity,
		&c.AppliedCouponID, &c.Version)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return c, fmt.Errorf("unmarshaling items of cart %q: %w", c.ID, err)
	}
	return c, nil
}
