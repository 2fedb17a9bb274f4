package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Discount holds a resolved coupon and the amount it yields for a basket.
type Discount struct {
	Coupon *Coupon
	Amount decimal.Decimal
}

// AdjustsCart reports whether applying the coupon changes cart totals at
// checkout. Product-wise coupons act through product prices instead.
func (d *Discount) AdjustsCart() bool {
	return d.Coupon.Type == TypeCartWise || d.Coupon.Type == TypeBxGy
}

// Validator resolves a coupon by identifier and computes its discount for a
// basket.
type Validator interface {
	Validate(ctx context.Context, id string, b Basket) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupons from a Repository
// and applying them via Calculate.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate looks up the coupon and calculates its discount. It returns
// ErrNotFound for unknown identifiers and the calculator's eligibility errors
// unchanged.
func (v *RepoValidator) Validate(ctx context.Context, id string, b Basket) (*Discount, error) {
	c, err := v.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	amount, err := Calculate(c, b)
	if err != nil {
		return nil, err
	}

	return &Discount{Coupon: c, Amount: amount}, nil
}
