package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrInvalidPrice is returned when a product is created with a negative price
// or discount.
var ErrInvalidPrice = errors.New("price and discount must not be negative")

// Service encapsulates catalog operations on products.
type Service struct {
	products Repository
}

// NewService creates a product Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// Create assigns an identifier when missing, derives the special price from
// price and discount, and stores the product. Coupon links are never taken
// from the input; they are owned by coupon provisioning.
func (s *Service) Create(ctx context.Context, p Product) (*Product, error) {
	if p.Price.IsNegative() || p.Discount.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Reprice(p.Discount)
	p.CouponIDs = nil

	if err := s.products.Save(ctx, &p); err != nil {
		return nil, errors.Wrap(err, "save product")
	}
	return &p, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// List returns every product in the catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}
