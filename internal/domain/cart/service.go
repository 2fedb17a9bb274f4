package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/money"
	"github.com/xenking/cart-coupons/internal/domain/product"
)

// DefaultLockTTL bounds how long a single cart mutation may hold its lock.
const DefaultLockTTL = 10 * time.Second

// Locker serializes work on a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Recorder receives coupon application outcomes.
type Recorder interface {
	CouponApplication(couponType, result string)
}

type nopRecorder struct{}

func (nopRecorder) CouponApplication(string, string) {}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTracerProvider sets the tracer provider used for spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("cart") }
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) { s.lockTTL = ttl }
}

// Service encapsulates cart operations: creation, adding lines, applying a
// coupon and resolving applicable coupons. Every mutation of a cart runs
// under a per-cart lock.
type Service struct {
	carts     Repository
	products  product.Repository
	coupons   coupon.Repository
	links     product.LinkRepository
	validator coupon.Validator
	locker    Locker

	lockTTL  time.Duration
	recorder Recorder
	tracer   trace.Tracer
}

// NewService creates a cart Service.
func NewService(
	carts Repository,
	products product.Repository,
	coupons coupon.Repository,
	links product.LinkRepository,
	validator coupon.Validator,
	locker Locker,
	opts ...Option,
) *Service {
	s := &Service{
		carts:     carts,
		products:  products,
		coupons:   coupons,
		links:     links,
		validator: validator,
		locker:    locker,
		lockTTL:   DefaultLockTTL,
		recorder:  nopRecorder{},
		tracer:    noop.NewTracerProvider().Tracer("cart"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func lockKey(cartID string) string {
	return "cart:" + cartID
}

// Create stores a new empty cart.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	c := &Cart{
		ID:            uuid.NewString(),
		Items:         []Item{},
		TotalPrice:    money.Zero,
		TotalDiscount: money.Zero,
	}
	if err := s.carts.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// Get returns a cart by identifier.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	return s.carts.GetByID(ctx, id)
}

// AddItem appends a line for the product, snapshotting its current prices,
// and recomputes totals against the applied coupon if any.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: qty}
	}

	ctx, span := s.tracer.Start(ctx, "cart.AddItem", trace.WithAttributes(
		attribute.String("cart.id", cartID),
		attribute.String("product.id", productID),
	))
	defer span.End()

	var out *Cart
	err := s.locker.WithLock(ctx, lockKey(cartID), s.lockTTL, func(ctx context.Context) error {
		c, err := s.carts.GetByID(ctx, cartID)
		if err != nil {
			return err
		}

		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return &ProductNotFoundError{ProductID: productID}
			}
			return errors.Wrap(err, "get product")
		}

		strategy, err := s.strategy(ctx, c)
		if err != nil {
			return err
		}

		next := c.Clone()
		next.Items = append(next.Items, Item{
			ID:           uuid.NewString(),
			ProductID:    p.ID,
			Name:         p.Name,
			Quantity:     qty,
			Price:        p.Price,
			Discount:     p.Discount,
			SpecialPrice: p.SpecialPrice,
		})
		next = Recompute(next, strategy)

		if err := s.carts.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save cart")
		}
		out = &next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// Recalculate recomputes the stored totals of a cart from its lines and the
// current state of its applied coupon.
func (s *Service) Recalculate(ctx context.Context, cartID string) (*Cart, error) {
	var out *Cart
	err := s.locker.WithLock(ctx, lockKey(cartID), s.lockTTL, func(ctx context.Context) error {
		c, err := s.carts.GetByID(ctx, cartID)
		if err != nil {
			return err
		}
		strategy, err := s.strategy(ctx, c)
		if err != nil {
			return err
		}
		next := Recompute(*c, strategy)
		if err := s.carts.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save cart")
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// strategy re-fetches the applied coupon so recomputation sees its current
// discount value.
func (s *Service) strategy(ctx context.Context, c *Cart) (Strategy, error) {
	if !c.HasCoupon() {
		return StrategyFor(nil), nil
	}
	cp, err := s.coupons.GetByID(ctx, c.AppliedCouponID)
	if err != nil {
		return nil, errors.Wrapf(err, "get applied coupon %s", c.AppliedCouponID)
	}
	return StrategyFor(cp), nil
}

// ApplyCoupon validates the coupon against the cart and, for cart-wide and
// BxGy coupons, records it and moves its discount into the cart totals.
//
// A product-wise coupon is accepted without changing or recording anything:
// its discount is already part of the line prices. A failed apply leaves the
// stored cart untouched.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, couponID string) (*Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.ApplyCoupon", trace.WithAttributes(
		attribute.String("cart.id", cartID),
		attribute.String("coupon.id", couponID),
	))
	defer span.End()

	couponType := "unknown"
	var out *Cart
	err := s.locker.WithLock(ctx, lockKey(cartID), s.lockTTL, func(ctx context.Context) error {
		if couponID == "" {
			return coupon.ErrNotFound
		}

		c, err := s.carts.GetByID(ctx, cartID)
		if err != nil {
			return err
		}

		switch c.AppliedCouponID {
		case "":
		case couponID:
			return ErrCouponAlreadyApplied
		default:
			return ErrCouponConflict
		}

		d, err := s.validator.Validate(ctx, couponID, c.Basket())
		if err != nil {
			return err
		}
		couponType = string(d.Coupon.Type)

		if !d.AdjustsCart() {
			out = c
			return nil
		}

		next := ApplyDiscount(*c, d.Amount)
		next.AppliedCouponID = couponID
		if err := s.carts.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save cart")
		}
		out = &next

		zctx.From(ctx).Info("Coupon applied",
			zap.String("cart_id", cartID),
			zap.String("coupon_id", couponID),
			zap.String("coupon_type", couponType),
			zap.String("discount", d.Amount.StringFixed(money.Scale)),
		)
		return nil
	})

	s.recorder.CouponApplication(couponType, outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("coupon.type", couponType))
	return out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, ErrCouponAlreadyApplied):
		return "already_applied"
	case errors.Is(err, ErrCouponConflict):
		return "conflict"
	case errors.Is(err, coupon.ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, coupon.ErrCouponIneligible):
		return "ineligible"
	case errors.Is(err, coupon.ErrNotFound), errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
