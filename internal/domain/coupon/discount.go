package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/money"
)

// Basket is the view of a cart the calculator works on.
type Basket struct {
	TotalPrice    decimal.Decimal
	TotalQuantity int
	Lines         []Line
}

// Line is a single cart line for discount calculation purposes.
type Line struct {
	ProductID    string
	Quantity     int
	SpecialPrice decimal.Decimal
}

// Calculate returns the discount the coupon yields for the basket.
// Product-wise coupons yield zero: their discount already lives in product
// prices.
func Calculate(c *Coupon, b Basket) (decimal.Decimal, error) {
	switch c.Type {
	case TypeCartWise:
		return cartWise(c, b), nil
	case TypeBxGy:
		return bxGy(c, b)
	case TypeProductWise:
		return money.Zero, nil
	default:
		return money.Zero, errors.Wrapf(ErrInvalidType, "calculate %q", c.Type)
	}
}

func cartWise(c *Coupon, b Basket) decimal.Decimal {
	if !money.AtLeast(b.TotalPrice, c.Threshold) {
		return money.Zero
	}
	return c.FlatValue()
}

// bxGy sums the value of free units over every line and deal. Matching is
// all-or-nothing: a single line outside a deal rejects the whole coupon.
func bxGy(c *Coupon, b Basket) (decimal.Decimal, error) {
	if c.Threshold == nil || !money.AtLeast(b.TotalPrice, c.Threshold) {
		return money.Zero, nil
	}

	total := money.Zero
	for _, deal := range c.Deals {
		for _, line := range b.Lines {
			if !deal.Covers(line.ProductID) || deal.BuyQuantity <= 0 {
				return money.Zero, ErrCouponIneligible
			}

			bundles := line.Quantity / deal.BuyQuantity
			if b.TotalQuantity <= deal.BuyQuantity {
				return money.Zero, ErrInsufficientQuantity
			}
			if bundles == 0 {
				return money.Zero, ErrCouponIneligible
			}

			free := money.Times(line.SpecialPrice, bundles*deal.FreeQuantity)
			total = total.Add(free)
		}
	}
	return money.Round(total), nil
}
