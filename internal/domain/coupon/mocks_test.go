package coupon

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/product"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type mockCouponRepo struct {
	byID    map[string]*Coupon
	getErr  error
	saveErr error
	saved   []Coupon
	deleted []string
}

func newCouponRepo(coupons ...Coupon) *mockCouponRepo {
	m := &mockCouponRepo{byID: make(map[string]*Coupon)}
	for i := range coupons {
		m.byID[coupons[i].ID] = &coupons[i]
	}
	return m
}

func (m *mockCouponRepo) GetByID(_ context.Context, id string) (*Coupon, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) List(_ context.Context) ([]Coupon, error) {
	out := make([]Coupon, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCouponRepo) FindByType(_ context.Context, t Type) (*Coupon, error) {
	for _, c := range m.byID {
		if c.Type == t {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockCouponRepo) Save(_ context.Context, c *Coupon) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *c)
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *mockCouponRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

type mockProductRepo struct {
	byID    map[string]*product.Product
	saved   []product.Product
	batches int
	err     error
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	m := &mockProductRepo{byID: make(map[string]*product.Product)}
	for i := range products {
		m.byID[products[i].ID] = &products[i]
	}
	return m
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.batches++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Save(_ context.Context, p *product.Product) error {
	m.saved = append(m.saved, *p)
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type link struct {
	productID string
	couponID  string
}

type mockLinkRepo struct {
	links    []link
	unlinked []string
	err      error
}

func (m *mockLinkRepo) Link(_ context.Context, productID, couponID string) error {
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, link{productID: productID, couponID: couponID})
	return nil
}

func (m *mockLinkRepo) CouponIDs(_ context.Context, productID string) ([]string, error) {
	var out []string
	for _, l := range m.links {
		if l.productID == productID {
			out = append(out, l.couponID)
		}
	}
	return out, nil
}

func (m *mockLinkRepo) UnlinkCoupon(_ context.Context, couponID string) error {
	if m.err != nil {
		return m.err
	}
	m.unlinked = append(m.unlinked, couponID)
	m.links = slices.DeleteFunc(m.links, func(l link) bool { return l.couponID == couponID })
	return nil
}
