// Package handler exposes the catalog and cart services over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// Handler serves the JSON API, delegating business logic to the domain
// services.
type Handler struct {
	products *product.Service
	coupons  *coupon.Service
	carts    *cart.Service
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(
	products *product.Service,
	coupons *coupon.Service,
	carts *cart.Service,
) *Handler {
	return &Handler{
		products: products,
		coupons:  coupons,
		carts:    carts,
	}
}

// Router returns the API routes. Mount it under /api.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Get("/{id}", h.GetCart)
		r.Post("/{id}/items", h.AddItem)
		r.Post("/{id}/recalculate", h.RecalculateCart)
		r.Post("/{id}/coupons/{couponID}", h.ApplyCoupon)
		r.Get("/{id}/applicable-coupons", h.ApplicableCoupons)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
