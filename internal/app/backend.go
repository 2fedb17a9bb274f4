package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
	"github.com/xenking/cart-coupons/internal/lock"
	"github.com/xenking/cart-coupons/internal/storage/memory"
	"github.com/xenking/cart-coupons/internal/storage/postgres"
	"github.com/xenking/cart-coupons/pkg/health"
)

const (
	lockPrefix    = "kart:lock:"
	limiterPrefix = "kart:limit"
	lockBackoff   = 25 * time.Millisecond
)

// catalog is a product store that also keeps product/coupon links.
type catalog interface {
	product.Repository
	product.LinkRepository
}

// repositories bundles the storage backend.
type repositories struct {
	products catalog
	coupons  coupon.Repository
	carts    cart.Repository
}

// coordination holds what must be shared between instances: the cart lock
// and the rate limiter counters.
type coordination struct {
	locker  cart.Locker
	limiter limiter.Store
}

// openRepositories connects the configured storage backend and registers its
// readiness check. The returned cleanup must be called on shutdown.
func openRepositories(ctx context.Context, lg *zap.Logger, cfg *Config, h *health.Health) (*repositories, func(), error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		products := memory.NewProductRepository()
		return &repositories{
			products: products,
			coupons:  memory.NewCouponRepository(),
			carts:    memory.NewCartRepository(),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	h.Register(health.Readiness, "postgres", 5*time.Second, health.PingCheck(pool))

	return &repositories{
		products: postgres.NewProductRepository(pool),
		coupons:  postgres.NewCouponRepository(pool),
		carts:    postgres.NewCartRepository(pool),
	}, pool.Close, nil
}

// openCoordination uses Redis when configured so several API instances can
// serve the same carts. Without Redis the lock and the limiter are
// in-process.
func openCoordination(ctx context.Context, lg *zap.Logger, cfg *Config, h *health.Health) (*coordination, func(), error) {
	if cfg.RedisURL == "" {
		lg.Info("Redis not configured, cart locks and rate limits are per instance")
		return &coordination{
			locker:  lock.NewLocal(),
			limiter: limitermemory.NewStore(),
		}, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	cleanup := func() {
		if err := client.Close(); err != nil {
			lg.Warn("Close redis", zap.Error(err))
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		cleanup()
		return nil, nil, errors.Wrap(err, "ping redis")
	}

	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: limiterPrefix})
	if err != nil {
		cleanup()
		return nil, nil, errors.Wrap(err, "create limiter store")
	}
	h.Register(health.Readiness, "redis", 2*time.Second, health.RedisCheck(client))

	return &coordination{
		locker:  lock.NewRedis(client, lockPrefix, lockBackoff),
		limiter: store,
	}, cleanup, nil
}
