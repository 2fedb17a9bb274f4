// Package metrics exposes Prometheus collectors for coupon activity.
package metrics

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Coupons counts coupon application attempts by coupon type and result.
type Coupons struct {
	applications *prometheus.CounterVec
}

// NewCoupons registers the coupon collectors with registerer, reusing
// collectors that are already registered under the same name.
func NewCoupons(registerer prometheus.Registerer) *Coupons {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Coupons{
		applications: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: "kart",
			Name:      "coupon_applications_total",
			Help:      "Coupon application attempts by coupon type and result.",
		}, []string{"type", "result"}),
	}
}

// CouponApplication records one application attempt.
func (m *Coupons) CouponApplication(couponType, result string) {
	m.applications.WithLabelValues(couponType, result).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}
