package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

var (
	// ErrNotFound is returned when a cart identifier does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrCouponAlreadyApplied is returned when the requested coupon is the one
	// already applied to the cart.
	ErrCouponAlreadyApplied = errors.New("coupon already applied")
	// ErrCouponConflict is returned when a different coupon is already applied.
	ErrCouponConflict = errors.New("only one coupon can be applied at a time")
	// ErrVersionConflict is returned by repositories when a cart was modified
	// since it was read.
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s, got %d", e.ProductID, e.Quantity)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return product.ErrNotFound
}

// Cart is a shopper's basket. TotalPrice, TotalDiscount and TotalQuantity are
// written only by the pricing functions in this package.
type Cart struct {
	ID              string
	Items           []Item
	TotalPrice      decimal.Decimal
	TotalDiscount   decimal.Decimal
	TotalQuantity   int
	AppliedCouponID string
	Version         int64
}

// Item is a cart line. Prices are copied from the product when the line is
// added and do not follow later catalog changes.
type Item struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	SpecialPrice decimal.Decimal `json:"special_price"`
}

// HasCoupon reports whether a coupon is applied.
func (c *Cart) HasCoupon() bool {
	return c.AppliedCouponID != ""
}

// Clone returns a copy that shares no item storage with c.
func (c *Cart) Clone() Cart {
	out := *c
	if c.Items != nil {
		out.Items = make([]Item, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}

// Basket converts the cart to the calculator's view.
func (c *Cart) Basket() coupon.Basket {
	lines := make([]coupon.Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = coupon.Line{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			SpecialPrice: it.SpecialPrice,
		}
	}
	return coupon.Basket{
		TotalPrice:    c.TotalPrice,
		TotalQuantity: c.TotalQuantity,
		Lines:         lines,
	}
}

// Repository defines persistence operations for carts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	// Save stores c if its Version matches the stored one and increments
	// c.Version. It returns ErrVersionConflict otherwise.
	Save(ctx context.Context, c *Cart) error
}
