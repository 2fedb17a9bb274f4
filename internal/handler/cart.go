package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/cart-coupons/internal/domain/cart"
)

func writeCart(w http.ResponseWriter, status int, c *cart.Cart) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeCart(e, c) })
}

// CreateCart handles POST /carts.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Create(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, http.StatusCreated, c)
}

// GetCart handles GET /carts/{id}.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

// AddItem handles POST /carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	err := decodeBody(r, func(d *jx.Decoder) (err error) {
		req, err = decodeItemRequest(d)
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if req.ProductID == "" {
		fail(w, r, badRequest("productId is required"))
		return
	}

	c, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

// RecalculateCart handles POST /carts/{id}/recalculate.
func (h *Handler) RecalculateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Recalculate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

// ApplyCoupon handles POST /carts/{id}/coupons/{couponID}.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "couponID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, c)
}

// ApplicableCoupons handles GET /carts/{id}/applicable-coupons.
func (h *Handler) ApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.carts.ApplicableCoupons(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupons(e, coupons) })
}
