package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-coupons/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores carts in memory with optimistic versioning.
type CartRepository struct {
	mu    sync.RWMutex
	items map[string]cart.Cart
}

// NewCartRepository creates an empty CartRepository.
func NewCartRepository() *CartRepository {
	return &CartRepository{items: make(map[string]cart.Cart)}
}

func (r *CartRepository) GetByID(_ context.Context, id string) (*cart.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return nil, cart.ErrNotFound
	}
	c = c.Clone()
	return &c, nil
}

// Create stores a new cart at version 1.
func (r *CartRepository) Create(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[c.ID]; ok {
		return errors.Errorf("cart %s already exists", c.ID)
	}
	c.Version = 1
	r.items[c.ID] = c.Clone()
	return nil
}

func (r *CartRepository) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[c.ID]
	if !ok {
		return cart.ErrNotFound
	}
	if stored.Version != c.Version {
		return cart.ErrVersionConflict
	}
	c.Version++
	r.items[c.ID] = c.Clone()
	return nil
}
