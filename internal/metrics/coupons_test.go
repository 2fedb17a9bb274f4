package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCouponApplication(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCoupons(reg)

	m.CouponApplication("CART_WISE", "applied")
	m.CouponApplication("CART_WISE", "applied")
	m.CouponApplication("BX_GY", "ineligible")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.applications.WithLabelValues("CART_WISE", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.applications.WithLabelValues("BX_GY", "ineligible")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.applications.WithLabelValues("BX_GY", "applied")))
}

func TestNewCouponsReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCoupons(reg)
	second := NewCoupons(reg)

	first.CouponApplication("CART_WISE", "applied")
	second.CouponApplication("CART_WISE", "applied")

	assert.Same(t, first.applications, second.applications)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.applications.WithLabelValues("CART_WISE", "applied")))
}
