package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Discount decimal.Decimal
	// SpecialPrice is Price - Discount. It is derived on creation and when a
	// product-wise coupon reprices the product.
	SpecialPrice decimal.Decimal
	// CouponIDs lists the coupons linked to this product. Repositories fill it
	// from the product/coupon relation on read; writes go through
	// LinkRepository.
	CouponIDs []string
}

// Reprice sets the flat discount and recomputes the special price.
func (p *Product) Reprice(discount decimal.Decimal) {
	p.Discount = discount
	p.SpecialPrice = p.Price.Sub(discount)
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Save(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// LinkRepository stores the product -> coupon relation. CouponIDs returns
// identifiers in link order.
type LinkRepository interface {
	Link(ctx context.Context, productID, couponID string) error
	CouponIDs(ctx context.Context, productID string) ([]string, error)
	UnlinkCoupon(ctx context.Context, couponID string) error
}
