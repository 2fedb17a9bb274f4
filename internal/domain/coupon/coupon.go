package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/money"
)

// Type enumerates the supported coupon kinds.
type Type string

const (
	// TypeCartWise discounts the whole cart once its total reaches a threshold.
	TypeCartWise Type = "CART_WISE"
	// TypeProductWise bakes a flat discount into the prices of listed products
	// when the coupon is provisioned.
	TypeProductWise Type = "PRODUCT_WISE"
	// TypeBxGy grants free units of covered products ("buy X get Y").
	TypeBxGy Type = "BX_GY"
)

// Valid reports whether t is a known coupon type.
func (t Type) Valid() bool {
	switch t {
	case TypeCartWise, TypeProductWise, TypeBxGy:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when a coupon identifier does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrCouponIneligible is returned when a BxGy coupon does not cover every
	// cart line or a line does not fill a single bundle.
	ErrCouponIneligible = errors.New("coupon not eligible")
	// ErrInsufficientQuantity is returned when the cart holds no more units
	// than a BxGy deal's buy quantity.
	ErrInsufficientQuantity = errors.New("add more products to avail this coupon")
	// ErrInvalidType is returned when a coupon carries an unknown type tag.
	ErrInvalidType = errors.New("invalid coupon type")
)

// Coupon is a promotional rule. Threshold is nil when no minimum applies.
type Coupon struct {
	ID                 string
	Name               string
	Type               Type
	DiscountValue      decimal.Decimal
	Threshold          *decimal.Decimal
	ApplicableProducts []string
	Deals              []Deal
}

// FlatValue is DiscountValue at money.Scale. Both the calculator and cart
// recomputation subtract this amount, so they always agree.
func (c *Coupon) FlatValue() decimal.Decimal {
	return money.Round(c.DiscountValue)
}

// Deal is a single buy-X-get-Y rule over a set of products.
type Deal struct {
	ID           string
	ProductIDs   []string
	BuyQuantity  int
	FreeQuantity int
}

// Covers reports whether productID is one of the deal's products.
func (d Deal) Covers(productID string) bool {
	for _, id := range d.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Repository provides persistence of coupons.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	// FindByType returns the first coupon of the given type. Callers assume at
	// most one coupon exists per type.
	FindByType(ctx context.Context, t Type) (*Coupon, error)
	Save(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
}
