package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"
)

// RateLimitConfig configures the per-client fixed window limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window. Zero disables
	// limiting.
	Max int64
	// Window is the length of each window.
	Window time.Duration
	// TrustForwardHeader keys clients by X-Forwarded-For / X-Real-IP.
	TrustForwardHeader bool
}

// RateLimit limits requests per client IP using store, which may be shared
// between instances. Responses carry X-RateLimit-* headers and rejected
// requests get a JSON 429 body.
func RateLimit(store limiter.Store, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := limiter.New(store,
		limiter.Rate{Period: cfg.Window, Limit: cfg.Max},
		limiter.WithTrustForwardHeader(cfg.TrustForwardHeader),
	)
	m := stdlib.NewMiddleware(l,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			zctx.From(r.Context()).Error("Rate limiter failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}),
	)
	return m.Handler
}
