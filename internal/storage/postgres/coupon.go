package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
)

const (
	couponColumns = `id, name, type, discount_value, threshold, applicable_products, deals`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at, id`

	findCouponByTypeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE type = $1
		ORDER BY created_at, id LIMIT 1`

	saveCouponSQL = `INSERT INTO coupons (id, name, type, discount_value, threshold, applicable_products, deals)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			discount_value = EXCLUDED.discount_value,
			threshold = EXCLUDED.threshold,
			applicable_products = EXCLUDED.applicable_products,
			deals = EXCLUDED.deals`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// dealRow is the JSONB representation of a BxGy deal.
type dealRow struct {
	ID           string   `json:"id"`
	ProductIDs   []string `json:"product_ids"`
	BuyQuantity  int      `json:"buy_quantity"`
	FreeQuantity int      `json:"free_quantity"`
}

// GetByID returns a single coupon by its identifier.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.one(ctx, getCouponByIDSQL, id)
}

// FindByType returns the earliest created coupon of type t.
func (r *CouponRepository) FindByType(ctx context.Context, t coupon.Type) (*coupon.Coupon, error) {
	return r.one(ctx, findCouponByTypeSQL, string(t))
}

// List returns all coupons in creation order.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Save inserts or updates a coupon. Deals are stored as JSONB.
func (r *CouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	deals := make([]dealRow, len(c.Deals))
	for i, d := range c.Deals {
		deals[i] = dealRow{
			ID:           d.ID,
			ProductIDs:   d.ProductIDs,
			BuyQuantity:  d.BuyQuantity,
			FreeQuantity: d.FreeQuantity,
		}
	}
	dealsJSON, err := json.Marshal(deals)
	if err != nil {
		return fmt.Errorf("marshaling coupon deals: %w", err)
	}

	applicable := c.ApplicableProducts
	if applicable == nil {
		applicable = []string{}
	}

	_, err = r.pool.Exec(ctx, saveCouponSQL,
		c.ID, c.Name, string(c.Type), c.DiscountValue, c.Threshold, applicable, dealsJSON,
	)
	if err != nil {
		return fmt.Errorf("saving coupon %q: %w", c.ID, err)
	}
	return nil
}

// Delete removes a coupon. Product links cascade.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) one(ctx context.Context, query string, arg any) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %v: %w", arg, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %v: %w", arg, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c         coupon.Coupon
		typ       string
		dealsJSON []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &typ, &c.DiscountValue, &c.Threshold, &c.ApplicableProducts, &dealsJSON); err != nil {
		return c, err
	}
	c.Type = coupon.Type(typ)

	var deals []dealRow
	if err := json.Unmarshal(dealsJSON, &deals); err != nil {
		return c, fmt.Errorf("unmarshaling deals of coupon %q: %w", c.ID, err)
	}
	for _, d := range deals {
		c.Deals = append(c.Deals, coupon.Deal{
			ID:           d.ID,
			ProductIDs:   d.ProductIDs,
			BuyQuantity:  d.BuyQuantity,
			FreeQuantity: d.FreeQuantity,
		})
	}
	return c, nil
}
