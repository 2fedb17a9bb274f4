package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

func readCoupon(r *http.Request) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := decodeBody(r, func(d *jx.Decoder) (err error) {
		c, err = decodeCoupon(d)
		return err
	})
	if err != nil {
		return c, err
	}
	if c.DiscountValue.IsNegative() {
		return c, badRequest("discountValue must not be negative")
	}
	for _, deal := range c.Deals {
		if deal.BuyQuantity < 0 || deal.FreeQuantity < 0 {
			return c, badRequest("deal quantities must not be negative")
		}
	}
	return c, nil
}

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	in, err := readCoupon(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if in.Name == "" {
		fail(w, r, badRequest("name is required"))
		return
	}

	c, err := h.coupons.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeCoupon(e, *c) })
}

// ListCoupons handles GET /coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupons(e, coupons) })
}

// GetCoupon handles GET /coupons/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, *c) })
}

// UpdateCoupon handles PUT /coupons/{id}.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	in, err := readCoupon(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	c, err := h.coupons.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, *c) })
}

// DeleteCoupon handles DELETE /coupons/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
