package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
	"github.com/xenking/cart-coupons/internal/lock"
	"github.com/xenking/cart-coupons/internal/storage/memory"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type productBody struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Discount     float64  `json:"discount"`
	SpecialPrice float64  `json:"specialPrice"`
	CouponIDs    []string `json:"couponIds"`
}

type couponBody struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	DiscountValue      float64  `json:"discountValue"`
	Threshold          *float64 `json:"threshold"`
	ApplicableProducts []string `json:"applicableProducts"`
	Deals              []struct {
		ID           string   `json:"id"`
		ProductIDs   []string `json:"productIds"`
		BuyQuantity  int      `json:"buyQuantity"`
		FreeQuantity int      `json:"freeQuantity"`
	} `json:"deals"`
}

type cartBody struct {
	ID    string `json:"id"`
	Items []struct {
		ProductID    string  `json:"productId"`
		Quantity     int     `json:"quantity"`
		SpecialPrice float64 `json:"specialPrice"`
	} `json:"items"`
	TotalPrice      float64 `json:"totalPrice"`
	TotalDiscount   float64 `json:"totalDiscount"`
	TotalQuantity   int     `json:"totalQuantity"`
	AppliedCouponID string  `json:"appliedCouponId"`
}

type server struct {
	t *testing.T
	h http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()

	products := memory.NewProductRepository()
	coupons := memory.NewCouponRepository()
	carts := memory.NewCartRepository()

	provisioner := coupon.NewProvisioner(coupons, products, products, coupon.LinkAll)
	h := NewHandler(
		product.NewService(products),
		coupon.NewService(coupons, products, provisioner),
		cart.NewService(carts, products, coupons, products, coupon.NewRepoValidator(coupons), lock.NewLocal()),
	)
	return &server{t: t, h: h.Router()}
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *server) createProduct(body string) productBody {
	s.t.Helper()
	w := s.do(http.MethodPost, "/products", body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[productBody](s.t, w)
}

func (s *server) createCoupon(body string) couponBody {
	s.t.Helper()
	w := s.do(http.MethodPost, "/coupons", body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[couponBody](s.t, w)
}

func (s *server) createCart() cartBody {
	s.t.Helper()
	w := s.do(http.MethodPost, "/carts", "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[cartBody](s.t, w)
}

func (s *server) addItem(cartID, productID string, qty int) *httptest.ResponseRecorder {
	s.t.Helper()
	body, err := json.Marshal(map[string]any{"productId": productID, "quantity": qty})
	require.NoError(s.t, err)
	return s.do(http.MethodPost, "/carts/"+cartID+"/items", string(body))
}

func TestProducts(t *testing.T) {
	s := newServer(t)

	p := s.createProduct(`{"name":"Shirt","price":100,"discount":"12.5"}`)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 87.5, p.SpecialPrice)
	assert.Empty(t, p.CouponIDs)

	w := s.do(http.MethodGet, "/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"specialPrice":87.50`)

	w = s.do(http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]productBody](t, w), 1)

	w = s.do(http.MethodGet, "/products/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errorBody{Code: 404, Message: "product not found"}, decode[errorBody](t, w))
}

func TestProducts_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed json", body: `{"name":`, want: http.StatusBadRequest},
		{name: "empty body", body: ``, want: http.StatusBadRequest},
		{name: "missing name", body: `{"price":1}`, want: http.StatusBadRequest},
		{name: "price not a number", body: `{"name":"x","price":true}`, want: http.StatusBadRequest},
		{name: "price not numeric string", body: `{"name":"x","price":"abc"}`, want: http.StatusBadRequest},
		{name: "negative price", body: `{"name":"x","price":-1}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			w := s.do(http.MethodPost, "/products", tt.body)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[errorBody](t, w).Code)
		})
	}
}

func TestCoupons(t *testing.T) {
	s := newServer(t)
	p := s.createProduct(`{"name":"Jeans","price":200}`)

	c := s.createCoupon(`{"name":"Jeans 20","type":"PRODUCT_WISE","discountValue":20,"applicableProducts":["` + p.ID + `"]}`)
	assert.Equal(t, "PRODUCT_WISE", c.Type)
	assert.Nil(t, c.Threshold)

	repriced := decode[productBody](t, s.do(http.MethodGet, "/products/"+p.ID, ""))
	assert.Equal(t, 20.0, repriced.Discount)
	assert.Equal(t, 180.0, repriced.SpecialPrice)
	assert.Equal(t, []string{c.ID}, repriced.CouponIDs)

	bx := s.createCoupon(`{"name":"B2G1","type":"BX_GY","threshold":0,"deals":[{"productIds":["` + p.ID + `"],"buyQuantity":2,"freeQuantity":1}]}`)
	require.Len(t, bx.Deals, 1)
	assert.NotEmpty(t, bx.Deals[0].ID)
	require.NotNil(t, bx.Threshold)

	w := s.do(http.MethodGet, "/coupons", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]couponBody](t, w), 2)

	w = s.do(http.MethodPut, "/coupons/"+bx.ID, `{"discountValue":5,"threshold":300,"deals":[{"productIds":["`+p.ID+`"],"buyQuantity":3,"freeQuantity":1}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[couponBody](t, w)
	assert.Equal(t, "B2G1", updated.Name)
	assert.Equal(t, 300.0, *updated.Threshold)
	assert.Equal(t, 3, updated.Deals[0].BuyQuantity)

	w = s.do(http.MethodDelete, "/coupons/"+c.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/coupons/"+c.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodDelete, "/coupons/"+c.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)

	after := decode[productBody](t, s.do(http.MethodGet, "/products/"+p.ID, ""))
	assert.Equal(t, []string{bx.ID}, after.CouponIDs)
}

func TestCoupons_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "unknown type", body: `{"name":"x","type":"PERCENT","discountValue":1}`, want: http.StatusUnprocessableEntity},
		{name: "unknown product", body: `{"name":"x","type":"PRODUCT_WISE","discountValue":1,"applicableProducts":["nope"]}`, want: http.StatusUnprocessableEntity},
		{name: "negative discount", body: `{"name":"x","type":"CART_WISE","discountValue":-1}`, want: http.StatusBadRequest},
		{name: "missing name", body: `{"type":"CART_WISE","discountValue":1}`, want: http.StatusBadRequest},
		{name: "deals not an array", body: `{"name":"x","type":"BX_GY","deals":{}}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			w := s.do(http.MethodPost, "/coupons", tt.body)
			require.Equal(t, tt.want, w.Code, w.Body.String())

			list := decode[[]couponBody](t, s.do(http.MethodGet, "/coupons", ""))
			assert.Empty(t, list)
		})
	}
}

func TestCartFlow(t *testing.T) {
	s := newServer(t)
	shirt := s.createProduct(`{"name":"Shirt","price":100}`)
	socks := s.createProduct(`{"name":"Socks","price":10}`)
	cw := s.createCoupon(`{"name":"Cart 10","type":"CART_WISE","discountValue":10,"threshold":150}`)
	bx := s.createCoupon(`{"name":"B2G1","type":"BX_GY","threshold":0,"deals":[{"productIds":["` + shirt.ID + `"],"buyQuantity":2,"freeQuantity":1}]}`)

	c := s.createCart()
	assert.Empty(t, c.Items)
	assert.Zero(t, c.TotalPrice)

	w := s.addItem(c.ID, shirt.ID, 2)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[cartBody](t, w)
	assert.Equal(t, 200.0, got.TotalPrice)
	assert.Equal(t, 2, got.TotalQuantity)

	w = s.do(http.MethodGet, "/carts/"+c.ID+"/applicable-coupons", "")
	require.Equal(t, http.StatusOK, w.Code)
	applicable := decode[[]couponBody](t, w)
	require.Len(t, applicable, 2)
	assert.Equal(t, bx.ID, applicable[0].ID)
	assert.Equal(t, cw.ID, applicable[1].ID)

	w = s.do(http.MethodPost, "/carts/"+c.ID+"/coupons/"+cw.ID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[cartBody](t, w)
	assert.Equal(t, 190.0, got.TotalPrice)
	assert.Equal(t, 10.0, got.TotalDiscount)
	assert.Equal(t, cw.ID, got.AppliedCouponID)

	w = s.do(http.MethodPost, "/carts/"+c.ID+"/coupons/"+cw.ID, "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "coupon already applied", decode[errorBody](t, w).Message)

	w = s.do(http.MethodPost, "/carts/"+c.ID+"/coupons/"+bx.ID, "")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "only one coupon can be applied at a time", decode[errorBody](t, w).Message)

	w = s.addItem(c.ID, socks.ID, 1)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[cartBody](t, w)
	assert.Equal(t, 200.0, got.TotalPrice)
	assert.Equal(t, 10.0, got.TotalDiscount)

	w = s.do(http.MethodPost, "/carts/"+c.ID+"/recalculate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200.0, decode[cartBody](t, w).TotalPrice)

	w = s.do(http.MethodGet, "/carts/"+c.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[cartBody](t, w).Items, 2)
}

func TestCartErrors(t *testing.T) {
	s := newServer(t)
	shirt := s.createProduct(`{"name":"Shirt","price":100}`)
	socks := s.createProduct(`{"name":"Socks","price":10}`)
	bx := s.createCoupon(`{"name":"B2G1","type":"BX_GY","threshold":0,"deals":[{"productIds":["` + shirt.ID + `"],"buyQuantity":2,"freeQuantity":1}]}`)
	c := s.createCart()

	tests := []struct {
		name   string
		do     func() *httptest.ResponseRecorder
		status int
	}{
		{
			name:   "zero quantity",
			do:     func() *httptest.ResponseRecorder { return s.addItem(c.ID, shirt.ID, 0) },
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown product",
			do:     func() *httptest.ResponseRecorder { return s.addItem(c.ID, "nope", 1) },
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "missing product id",
			do:     func() *httptest.ResponseRecorder { return s.do(http.MethodPost, "/carts/"+c.ID+"/items", `{"quantity":1}`) },
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown cart",
			do:     func() *httptest.ResponseRecorder { return s.addItem("nope", shirt.ID, 1) },
			status: http.StatusNotFound,
		},
		{
			name:   "get unknown cart",
			do:     func() *httptest.ResponseRecorder { return s.do(http.MethodGet, "/carts/nope", "") },
			status: http.StatusNotFound,
		},
		{
			name:   "unknown coupon",
			do:     func() *httptest.ResponseRecorder { return s.do(http.MethodPost, "/carts/"+c.ID+"/coupons/nope", "") },
			status: http.StatusNotFound,
		},
		{
			name: "bxgy not covering every line",
			do: func() *httptest.ResponseRecorder {
				require.Equal(t, http.StatusOK, s.addItem(c.ID, shirt.ID, 3).Code)
				require.Equal(t, http.StatusOK, s.addItem(c.ID, socks.ID, 1).Code)
				return s.do(http.MethodPost, "/carts/"+c.ID+"/coupons/"+bx.ID, "")
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown route",
			do:     func() *httptest.ResponseRecorder { return s.do(http.MethodGet, "/orders", "") },
			status: http.StatusNotFound,
		},
		{
			name:   "method not allowed",
			do:     func() *httptest.ResponseRecorder { return s.do(http.MethodPatch, "/carts/"+c.ID, "") },
			status: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.do()
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.status, decode[errorBody](t, w).Code)
		})
	}

	stored := decode[cartBody](t, s.do(http.MethodGet, "/carts/"+c.ID, ""))
	assert.Empty(t, stored.AppliedCouponID)
	assert.Equal(t, 310.0, stored.TotalPrice)
}

func TestDecodeDecimal(t *testing.T) {
	p, err := decodeProduct(jx.DecodeStr(`{"name":"x","price":"19.99","discount":0.01,"unknown":{"a":[1,2]}}`))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Price))
	assert.True(t, decimal.RequireFromString("0.01").Equal(p.Discount))
}
