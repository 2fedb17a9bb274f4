package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

// requestError reports a malformed request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// writeJSON writes status and the body produced by encode.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the {"code","message"} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// fail maps a service error to an HTTP status. Unknown errors are logged and
// reported as 500 without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, message)
}

func statusOf(err error) (int, string) {
	var (
		reqErr  *requestError
		qtyErr  *cart.InvalidQuantityError
		prodErr *cart.ProductNotFoundError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.Error()
	case errors.As(err, &qtyErr), errors.As(err, &prodErr):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, cart.ErrCouponAlreadyApplied),
		errors.Is(err, cart.ErrCouponConflict),
		errors.Is(err, cart.ErrVersionConflict):
		return http.StatusConflict, rootMessage(err)
	case errors.Is(err, coupon.ErrCouponIneligible),
		errors.Is(err, coupon.ErrInsufficientQuantity),
		errors.Is(err, coupon.ErrInvalidType),
		errors.Is(err, product.ErrInvalidPrice):
		return http.StatusUnprocessableEntity, rootMessage(err)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// rootMessage returns the message of the innermost error, hiding wrapping
// context such as repository identifiers.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// decodeBody reads the request body and runs decode over it.
func decodeBody(r *http.Request, decode func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(body) == 0 {
		return badRequest("request body is empty")
	}
	if err := decode(jx.DecodeBytes(body)); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return err
		}
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}
