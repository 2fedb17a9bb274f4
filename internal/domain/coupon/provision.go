package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/cart-coupons/internal/domain/product"
)

// LinkPolicy controls how many products a new coupon is provisioned against.
type LinkPolicy string

const (
	// LinkAll provisions every product of every BxGy deal, or every
	// applicable product of a product-wise coupon.
	LinkAll LinkPolicy = "all"
	// LinkFirst provisions only the first product of the first BxGy deal, or
	// the first applicable product. This reproduces the legacy behaviour and
	// exists for data compatibility.
	LinkFirst LinkPolicy = "first"
)

// ParseLinkPolicy converts a configuration value to a LinkPolicy. An empty
// value selects LinkAll.
func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch LinkPolicy(s) {
	case "", LinkAll:
		return LinkAll, nil
	case LinkFirst:
		return LinkFirst, nil
	default:
		return "", errors.Errorf("unknown link policy %q", s)
	}
}

// Provisioner stores new coupons and links them to the products they target.
type Provisioner struct {
	coupons  Repository
	products product.Repository
	links    product.LinkRepository
	policy   LinkPolicy
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(
	coupons Repository,
	products product.Repository,
	links product.LinkRepository,
	policy LinkPolicy,
) *Provisioner {
	return &Provisioner{
		coupons:  coupons,
		products: products,
		links:    links,
		policy:   policy,
	}
}

// Provision saves the coupon and links it to its target products. BxGy deals
// take precedence over applicable products. Product-wise targets are also
// repriced: their discount becomes the coupon's discount value, stored at
// money.Scale.
//
// Every target product is resolved before anything is written, so an unknown
// product leaves both coupon and catalog untouched. The writes themselves are
// not transactional: a storage failure while linking or repricing leaves the
// coupon saved with only the targets processed so far.
func (p *Provisioner) Provision(ctx context.Context, c Coupon) (*Coupon, error) {
	if !c.Type.Valid() {
		return nil, errors.Wrapf(ErrInvalidType, "provision %q", c.Type)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Deals {
		if c.Deals[i].ID == "" {
			c.Deals[i].ID = uuid.NewString()
		}
	}
	c.DiscountValue = c.FlatValue()

	ids, reprice := p.targets(c)
	targets, err := p.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	if err := p.coupons.Save(ctx, &c); err != nil {
		return nil, errors.Wrap(err, "save coupon")
	}

	for i := range targets {
		prod := &targets[i]
		if err := p.links.Link(ctx, prod.ID, c.ID); err != nil {
			return nil, errors.Wrapf(err, "link product %s", prod.ID)
		}
		if !reprice {
			continue
		}
		prod.Reprice(c.DiscountValue)
		if err := p.products.Save(ctx, prod); err != nil {
			return nil, errors.Wrapf(err, "save product %s", prod.ID)
		}
	}

	return &c, nil
}

// resolve loads the products in ids order with a single lookup. A missing
// identifier yields product.ErrNotFound.
func (p *Provisioner) resolve(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := p.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve products")
	}
	byID := make(map[string]product.Product, len(found))
	for _, prod := range found {
		byID[prod.ID] = prod
	}

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		prod, ok := byID[id]
		if !ok {
			return nil, errors.Wrapf(product.ErrNotFound, "resolve product %s", id)
		}
		out = append(out, prod)
	}
	return out, nil
}

// targets returns the product identifiers to link and whether they should be
// repriced.
func (p *Provisioner) targets(c Coupon) (ids []string, reprice bool) {
	switch {
	case len(c.Deals) > 0:
		if p.policy == LinkFirst {
			return first(c.Deals[0].ProductIDs), false
		}
		var all []string
		for _, d := range c.Deals {
			all = append(all, d.ProductIDs...)
		}
		return unique(all), false
	case len(c.ApplicableProducts) > 0:
		if p.policy == LinkFirst {
			return first(c.ApplicableProducts), true
		}
		return unique(c.ApplicableProducts), true
	default:
		return nil, false
	}
}

func first(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids[:1]
}

// unique drops repeated identifiers, keeping first occurrences in order.
func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
