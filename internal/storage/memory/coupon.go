package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository stores coupons in memory.
type CouponRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]coupon.Coupon
}

// NewCouponRepository creates an empty CouponRepository.
func NewCouponRepository() *CouponRepository {
	return &CouponRepository{items: make(map[string]coupon.Coupon)}
}

func (r *CouponRepository) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	c = cloneCoupon(c)
	return &c, nil
}

func (r *CouponRepository) List(_ context.Context) ([]coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]coupon.Coupon, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneCoupon(r.items[id]))
	}
	return out, nil
}

// FindByType returns the earliest stored coupon of type t.
func (r *CouponRepository) FindByType(_ context.Context, t coupon.Type) (*coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if c := r.items[id]; c.Type == t {
			c = cloneCoupon(c)
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (r *CouponRepository) Save(_ context.Context, c *coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.items[c.ID] = cloneCoupon(*c)
	return nil
}

func (r *CouponRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(r.items, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func cloneCoupon(c coupon.Coupon) coupon.Coupon {
	if c.Threshold != nil {
		t := *c.Threshold
		c.Threshold = &t
	}
	c.ApplicableProducts = slices.Clone(c.ApplicableProducts)
	if c.Deals != nil {
		deals := make([]coupon.Deal, len(c.Deals))
		for i, d := range c.Deals {
			d.ProductIDs = slices.Clone(d.ProductIDs)
			deals[i] = d
		}
		c.Deals = deals
	}
	return c
}
