package coupon

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-coupons/internal/domain/product"
)

// Service encapsulates coupon catalog operations.
type Service struct {
	coupons     Repository
	links       product.LinkRepository
	provisioner *Provisioner
}

// NewService creates a coupon Service.
func NewService(coupons Repository, links product.LinkRepository, provisioner *Provisioner) *Service {
	return &Service{
		coupons:     coupons,
		links:       links,
		provisioner: provisioner,
	}
}

// Create provisions a new coupon.
func (s *Service) Create(ctx context.Context, c Coupon) (*Coupon, error) {
	return s.provisioner.Provision(ctx, c)
}

// Get returns a single coupon.
func (s *Service) Get(ctx context.Context, id string) (*Coupon, error) {
	return s.coupons.GetByID(ctx, id)
}

// List returns every coupon.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.coupons.List(ctx)
}

// Update replaces the discount value, threshold, applicable products and
// deals of an existing coupon. Name and type are immutable, and existing
// product links are not re-provisioned.
func (s *Service) Update(ctx context.Context, id string, details Coupon) (*Coupon, error) {
	c, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.DiscountValue = details.FlatValue()
	c.Threshold = details.Threshold
	c.ApplicableProducts = details.ApplicableProducts
	c.Deals = details.Deals

	if err := s.coupons.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save coupon")
	}
	return c, nil
}

// Delete removes the coupon and every product link that references it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.coupons.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.links.UnlinkCoupon(ctx, id); err != nil {
		return errors.Wrap(err, "unlink coupon")
	}
	if err := s.coupons.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}
