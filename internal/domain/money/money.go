// Package money holds the decimal helpers shared by every price and discount
// computation. All amounts are shopspring decimals; floats never enter the
// pricing path.
package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits kept for stored amounts.
const Scale = 2

// Zero is the zero amount.
var Zero = decimal.Zero

// Times returns amount multiplied by an integer quantity.
func Times(amount decimal.Decimal, qty int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(qty)))
}

// Round rounds half away from zero to Scale digits.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// AtLeast reports whether amount >= limit. A nil limit is always met.
func AtLeast(amount decimal.Decimal, limit *decimal.Decimal) bool {
	if limit == nil {
		return true
	}
	return amount.GreaterThanOrEqual(*limit)
}

// Parse parses a decimal literal such as "12.50".
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
