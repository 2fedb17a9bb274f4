package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cart-coupons/internal/domain/product"
)

const (
	productColumns = `p.id, p.name, p.price, p.discount, p.special_price,
		ARRAY(SELECT pc.coupon_id FROM product_coupons pc WHERE pc.product_id = p.id ORDER BY pc.position)`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products p ORDER BY p.created_at, p.id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = ANY($1)
		ORDER BY array_position($1, p.id)`

	saveProductSQL = `INSERT INTO products (id, name, price, discount, special_price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			discount = EXCLUDED.discount,
			special_price = EXCLUDED.special_price`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	linkSQL = `INSERT INTO product_coupons (product_id, coupon_id) VALUES ($1, $2)
		ON CONFLICT (product_id, coupon_id) DO NOTHING`

	couponIDsSQL = `SELECT ARRAY(SELECT pc.coupon_id FROM product_coupons pc WHERE pc.product_id = p.id ORDER BY pc.position)
		FROM products p WHERE p.id = $1`

	unlinkCouponSQL = `DELETE FROM product_coupons WHERE coupon_id = $1`
)

var (
	_ product.Repository     = (*ProductRepository)(nil)
	_ product.LinkRepository = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository and product.LinkRepository
// backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products in creation order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs in request order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Save inserts or updates a product. Coupon links are not touched.
func (r *ProductRepository) Save(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, saveProductSQL, p.ID, p.Name, p.Price, p.Discount, p.SpecialPrice)
	if err != nil {
		return fmt.Errorf("saving product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product and its coupon links.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Link records that couponID targets productID. Linking twice is a no-op.
func (r *ProductRepository) Link(ctx context.Context, productID, couponID string) error {
	if _, err := r.pool.Exec(ctx, linkSQL, productID, couponID); err != nil {
		if isForeignKeyViolation(err) {
			return product.ErrNotFound
		}
		return fmt.Errorf("linking product %q to coupon %q: %w", productID, couponID, err)
	}
	return nil
}

// CouponIDs returns the coupons linked to a product in link order.
func (r *ProductRepository) CouponIDs(ctx context.Context, productID string) ([]string, error) {
	var ids []string
	if err := r.pool.QueryRow(ctx, couponIDsSQL, productID).Scan(&ids); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupons of product %q: %w", productID, err)
	}
	return ids, nil
}

// UnlinkCoupon removes every link to couponID.
func (r *ProductRepository) UnlinkCoupon(ctx context.Context, couponID string) error {
	if _, err := r.pool.Exec(ctx, unlinkCouponSQL, couponID); err != nil {
		return fmt.Errorf("unlinking coupon %q: %w", couponID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Discount, &p.SpecialPrice, &p.CouponIDs)
	return p, err
}
