package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/money"
)

// Strategy selects what Recompute does after folding line items. It is
// implemented by LineOnly and LinePlusCoupon only.
type Strategy interface {
	adjust(price, discount decimal.Decimal) (decimal.Decimal, decimal.Decimal)
}

// LineOnly prices the cart from its lines alone.
type LineOnly struct{}

func (LineOnly) adjust(price, discount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return price, discount
}

// LinePlusCoupon subtracts Amount once from the line total and adds it once
// to the discount total.
type LinePlusCoupon struct {
	Amount decimal.Decimal
}

func (s LinePlusCoupon) adjust(price, discount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return price.Sub(s.Amount), discount.Add(s.Amount)
}

// StrategyFor returns the pricing strategy for a cart whose applied coupon is
// c, or LineOnly when c is nil. Any applied coupon, whatever its type,
// contributes its flat discount value.
func StrategyFor(c *coupon.Coupon) Strategy {
	if c == nil {
		return LineOnly{}
	}
	return LinePlusCoupon{Amount: c.FlatValue()}
}

// Recompute returns c with totals derived from its items under strategy s.
//
// An empty cart gets zero price and discount and keeps its TotalQuantity as
// is; the strategy is not consulted.
func Recompute(c Cart, s Strategy) Cart {
	out := c.Clone()
	if len(out.Items) == 0 {
		out.TotalPrice = money.Zero
		out.TotalDiscount = money.Zero
		return out
	}

	price, discount, qty := money.Zero, money.Zero, 0
	for _, it := range out.Items {
		price = price.Add(money.Times(it.SpecialPrice, it.Quantity))
		discount = discount.Add(money.Times(it.Discount, it.Quantity))
		qty += it.Quantity
	}

	out.TotalPrice, out.TotalDiscount = s.adjust(price, discount)
	out.TotalQuantity = qty
	return out
}

// ApplyDiscount returns c with amount moved from its price total to its
// discount total.
func ApplyDiscount(c Cart, amount decimal.Decimal) Cart {
	out := c.Clone()
	out.TotalPrice = out.TotalPrice.Sub(amount)
	out.TotalDiscount = out.TotalDiscount.Add(amount)
	return out
}
