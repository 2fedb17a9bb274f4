// Package catalog reads product and coupon definitions from JSON files for
// the seed and import commands.
package catalog

import (
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

// Product is a product definition.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
}

// Domain converts the definition to a catalog product.
func (p Product) Domain() product.Product {
	return product.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Discount: p.Discount,
	}
}

// Deal is a BxGy deal definition.
type Deal struct {
	ID           string   `json:"id"`
	ProductIDs   []string `json:"productIds"`
	BuyQuantity  int      `json:"buyQuantity"`
	FreeQuantity int      `json:"freeQuantity"`
}

// Coupon is a coupon definition.
type Coupon struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Type               coupon.Type      `json:"type"`
	DiscountValue      decimal.Decimal  `json:"discountValue"`
	Threshold          *decimal.Decimal `json:"threshold"`
	ApplicableProducts []string         `json:"applicableProducts"`
	Deals              []Deal           `json:"deals"`
}

// Domain validates the definition and converts it to a coupon.
func (c Coupon) Domain() (coupon.Coupon, error) {
	if c.Name == "" {
		return coupon.Coupon{}, errors.New("name is required")
	}
	if !c.Type.Valid() {
		return coupon.Coupon{}, errors.Wrapf(coupon.ErrInvalidType, "coupon %q", c.Type)
	}
	if c.DiscountValue.IsNegative() {
		return coupon.Coupon{}, errors.New("discount value must not be negative")
	}

	out := coupon.Coupon{
		ID:                 c.ID,
		Name:               c.Name,
		Type:               c.Type,
		DiscountValue:      c.DiscountValue,
		Threshold:          c.Threshold,
		ApplicableProducts: c.ApplicableProducts,
	}
	for _, d := range c.Deals {
		if d.BuyQuantity < 0 || d.FreeQuantity < 0 {
			return coupon.Coupon{}, errors.New("deal quantities must not be negative")
		}
		out.Deals = append(out.Deals, coupon.Deal{
			ID:           d.ID,
			ProductIDs:   d.ProductIDs,
			BuyQuantity:  d.BuyQuantity,
			FreeQuantity: d.FreeQuantity,
		})
	}
	return out, nil
}

// File is a seed document.
type File struct {
	Products []Product `json:"products"`
	Coupons  []Coupon  `json:"coupons"`
}

// ReadFile decodes a seed document.
func ReadFile(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return &f, nil
}

// Line is one decoded record of a JSON Lines coupon stream.
type Line struct {
	// Number is the 1-based record number.
	Number int
	Coupon coupon.Coupon
}

// ReadLines decodes one coupon definition per line, skipping blank lines.
// It stops at the first malformed line.
func ReadLines(r io.Reader, fn func(Line) error) error {
	dec := json.NewDecoder(r)
	for n := 1; ; n++ {
		var c Coupon
		err := dec.Decode(&c)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "record %d", n)
		}
		cp, err := c.Domain()
		if err != nil {
			return errors.Wrapf(err, "record %d", n)
		}
		if err := fn(Line{Number: n, Coupon: cp}); err != nil {
			return err
		}
	}
}
