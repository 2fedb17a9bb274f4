package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/money"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

// Amounts are written as JSON numbers with two fractional digits. Both
// numbers and numeric strings are accepted on input.

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.StringFixed(money.Scale)))
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		s = v
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Decimal{}, err
		}
		s = raw.String()
	default:
		return decimal.Decimal{}, errors.New("amount must be a number")
	}

	v, err := money.Parse(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse amount %q", s)
	}
	return v, nil
}

func decodeOptDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	out := make([]string, 0)
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("discount")
	encodeDecimal(e, p.Discount)
	e.FieldStart("specialPrice")
	encodeDecimal(e, p.SpecialPrice)
	e.FieldStart("couponIds")
	encodeStrings(e, p.CouponIDs)
	e.ObjEnd()
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "discount":
			p.Discount, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return p, err
}

func encodeDeal(e *jx.Encoder, deal coupon.Deal) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(deal.ID)
	e.FieldStart("productIds")
	encodeStrings(e, deal.ProductIDs)
	e.FieldStart("buyQuantity")
	e.Int(deal.BuyQuantity)
	e.FieldStart("freeQuantity")
	e.Int(deal.FreeQuantity)
	e.ObjEnd()
}

func decodeDeal(d *jx.Decoder) (coupon.Deal, error) {
	var deal coupon.Deal
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			deal.ID, err = d.Str()
		case "productIds":
			deal.ProductIDs, err = decodeStrings(d)
		case "buyQuantity":
			deal.BuyQuantity, err = d.Int()
		case "freeQuantity":
			deal.FreeQuantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return deal, err
}

func encodeCoupon(e *jx.Encoder, c coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("type")
	e.Str(string(c.Type))
	e.FieldStart("discountValue")
	encodeDecimal(e, c.DiscountValue)
	e.FieldStart("threshold")
	if c.Threshold != nil {
		encodeDecimal(e, *c.Threshold)
	} else {
		e.Null()
	}
	e.FieldStart("applicableProducts")
	encodeStrings(e, c.ApplicableProducts)
	e.FieldStart("deals")
	e.ArrStart()
	for _, deal := range c.Deals {
		encodeDeal(e, deal)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeCoupons(e *jx.Encoder, coupons []coupon.Coupon) {
	e.ArrStart()
	for _, c := range coupons {
		encodeCoupon(e, c)
	}
	e.ArrEnd()
}

func decodeCoupon(d *jx.Decoder) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "type":
			var s string
			s, err = d.Str()
			c.Type = coupon.Type(s)
		case "discountValue":
			c.DiscountValue, err = decodeDecimal(d)
		case "threshold":
			c.Threshold, err = decodeOptDecimal(d)
		case "applicableProducts":
			c.ApplicableProducts, err = decodeStrings(d)
		case "deals":
			err = d.Arr(func(d *jx.Decoder) error {
				deal, err := decodeDeal(d)
				if err != nil {
					return err
				}
				c.Deals = append(c.Deals, deal)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return c, err
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		encodeDecimal(e, it.Price)
		e.FieldStart("discount")
		encodeDecimal(e, it.Discount)
		e.FieldStart("specialPrice")
		encodeDecimal(e, it.SpecialPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalPrice")
	encodeDecimal(e, c.TotalPrice)
	e.FieldStart("totalDiscount")
	encodeDecimal(e, c.TotalDiscount)
	e.FieldStart("totalQuantity")
	e.Int(c.TotalQuantity)
	if c.HasCoupon() {
		e.FieldStart("appliedCouponId")
		e.Str(c.AppliedCouponID)
	}
	e.ObjEnd()
}

// itemRequest is the body of POST /carts/{id}/items.
type itemRequest struct {
	ProductID string
	Quantity  int
}

func decodeItemRequest(d *jx.Decoder) (itemRequest, error) {
	var req itemRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return req, err
}
