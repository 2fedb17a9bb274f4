package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/money"
)

// ApplicableCoupons lists the coupons a cart could use: every coupon linked
// to a product in the cart, in line order and without de-duplication,
// followed by the cart-wide coupon when the cart total meets its threshold.
func (s *Service) ApplicableCoupons(ctx context.Context, cartID string) ([]coupon.Coupon, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	out := make([]coupon.Coupon, 0)
	for _, it := range c.Items {
		ids, err := s.links.CouponIDs(ctx, it.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "linked coupons of %s", it.ProductID)
		}
		for _, id := range ids {
			cp, err := s.coupons.GetByID(ctx, id)
			if err != nil {
				return nil, errors.Wrapf(err, "get coupon %s", id)
			}
			out = append(out, *cp)
		}
	}

	cw, err := s.coupons.FindByType(ctx, coupon.TypeCartWise)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return out, nil
	case err != nil:
		return nil, errors.Wrap(err, "find cart-wise coupon")
	}
	if money.AtLeast(c.TotalPrice, cw.Threshold) {
		out = append(out, *cw)
	}
	return out, nil
}
