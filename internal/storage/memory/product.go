// Package memory provides in-process repositories for every domain entity.
// They keep insertion order and hand out copies, so callers never share
// state with the store.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/cart-coupons/internal/domain/product"
)

var (
	_ product.Repository     = (*ProductRepository)(nil)
	_ product.LinkRepository = (*ProductRepository)(nil)
)

// ProductRepository stores products together with their coupon links.
type ProductRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]product.Product
	links map[string][]string
}

// NewProductRepository creates an empty ProductRepository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		items: make(map[string]product.Product),
		links: make(map[string][]string),
	}
}

func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.load(id))
	}
	return out, nil
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.items[id]; !ok {
		return nil, product.ErrNotFound
	}
	p := r.load(id)
	return &p, nil
}

// GetByIDs returns the products that exist, in request order. Unknown
// identifiers are skipped.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			out = append(out, r.load(id))
		}
	}
	return out, nil
}

func (r *ProductRepository) Save(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	stored := *p
	stored.CouponIDs = nil
	r.items[p.ID] = stored
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.items, id)
	delete(r.links, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *ProductRepository) Link(_ context.Context, productID, couponID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[productID]; !ok {
		return product.ErrNotFound
	}
	if slices.Contains(r.links[productID], couponID) {
		return nil
	}
	r.links[productID] = append(r.links[productID], couponID)
	return nil
}

func (r *ProductRepository) CouponIDs(_ context.Context, productID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.items[productID]; !ok {
		return nil, product.ErrNotFound
	}
	return slices.Clone(r.links[productID]), nil
}

func (r *ProductRepository) UnlinkCoupon(_ context.Context, couponID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ids := range r.links {
		r.links[id] = slices.DeleteFunc(ids, func(v string) bool { return v == couponID })
	}
	return nil
}

// load must be called with r.mu held.
func (r *ProductRepository) load(id string) product.Product {
	p := r.items[id]
	p.CouponIDs = slices.Clone(r.links[id])
	if p.CouponIDs == nil {
		p.CouponIDs = []string{}
	}
	return p
}
