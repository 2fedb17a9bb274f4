//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/cart-coupons/internal/domain/cart"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
	"github.com/xenking/cart-coupons/internal/storage/postgres"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "kart",
				"POSTGRES_PASSWORD": "kart",
				"POSTGRES_DB":       "kart",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://kart:kart@%s:%s/kart?sslmode=disable", host, port.Port())
	pool, err := postgres.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, postgres.RunMigrations(ctx, pool))
	return pool
}

func TestRepositories(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()

	products := postgres.NewProductRepository(pool)
	coupons := postgres.NewCouponRepository(pool)
	carts := postgres.NewCartRepository(pool)

	t.Run("products and links", func(t *testing.T) {
		require.NoError(t, products.Save(ctx, &product.Product{ID: "p1", Name: "Shirt", Price: d("100"), SpecialPrice: d("100")}))
		require.NoError(t, products.Save(ctx, &product.Product{ID: "p2", Name: "Jeans", Price: d("200"), Discount: d("20"), SpecialPrice: d("180")}))

		threshold := d("0")
		require.NoError(t, coupons.Save(ctx, &coupon.Coupon{
			ID: "b2g1", Name: "B2G1", Type: coupon.TypeBxGy, Threshold: &threshold,
			Deals: []coupon.Deal{{ID: "deal", ProductIDs: []string{"p1", "p2"}, BuyQuantity: 2, FreeQuantity: 1}},
		}))
		require.NoError(t, coupons.Save(ctx, &coupon.Coupon{
			ID: "pw", Name: "PW", Type: coupon.TypeProductWise, DiscountValue: d("5"), ApplicableProducts: []string{"p1"},
		}))

		require.NoError(t, products.Link(ctx, "p1", "b2g1"))
		require.NoError(t, products.Link(ctx, "p1", "pw"))
		require.NoError(t, products.Link(ctx, "p1", "b2g1"))
		require.ErrorIs(t, products.Link(ctx, "missing", "pw"), product.ErrNotFound)

		ids, err := products.CouponIDs(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b2g1", "pw"}, ids)

		_, err = products.CouponIDs(ctx, "missing")
		require.ErrorIs(t, err, product.ErrNotFound)

		p, err := products.GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b2g1", "pw"}, p.CouponIDs)

		got, err := products.GetByIDs(ctx, []string{"p2", "p1", "nope"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "p2", got[0].ID)
		assert.True(t, d("180").Equal(got[0].SpecialPrice))

		require.NoError(t, coupons.Delete(ctx, "pw"))
		ids, err = products.CouponIDs(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b2g1"}, ids)
	})

	t.Run("coupons", func(t *testing.T) {
		threshold := d("100")
		require.NoError(t, coupons.Save(ctx, &coupon.Coupon{
			ID: "cw", Name: "Cart", Type: coupon.TypeCartWise, DiscountValue: d("10"), Threshold: &threshold,
		}))

		cw, err := coupons.FindByType(ctx, coupon.TypeCartWise)
		require.NoError(t, err)
		assert.Equal(t, "cw", cw.ID)
		require.NotNil(t, cw.Threshold)
		assert.True(t, d("100").Equal(*cw.Threshold))

		bx, err := coupons.GetByID(ctx, "b2g1")
		require.NoError(t, err)
		require.Len(t, bx.Deals, 1)
		assert.Equal(t, []string{"p1", "p2"}, bx.Deals[0].ProductIDs)
		assert.Equal(t, 2, bx.Deals[0].BuyQuantity)

		noThreshold := coupon.Coupon{ID: "free", Name: "Free", Type: coupon.TypeCartWise, DiscountValue: d("1")}
		require.NoError(t, coupons.Save(ctx, &noThreshold))
		got, err := coupons.GetByID(ctx, "free")
		require.NoError(t, err)
		assert.Nil(t, got.Threshold)

		_, err = coupons.GetByID(ctx, "missing")
		require.ErrorIs(t, err, coupon.ErrNotFound)
		require.ErrorIs(t, coupons.Delete(ctx, "missing"), coupon.ErrNotFound)
	})

	t.Run("carts", func(t *testing.T) {
		c := &cart.Cart{ID: "cart-1", Items: []cart.Item{}}
		require.NoError(t, carts.Create(ctx, c))
		assert.Equal(t, int64(1), c.Version)

		stale, err := carts.GetByID(ctx, "cart-1")
		require.NoError(t, err)

		c.Items = append(c.Items, cart.Item{
			ID: "i1", ProductID: "p1", Name: "Shirt", Quantity: 2,
			Price: d("100"), Discount: d("0"), SpecialPrice: d("100"),
		})
		c.TotalPrice, c.TotalQuantity = d("200"), 2
		c.AppliedCouponID = "cw"
		require.NoError(t, carts.Save(ctx, c))
		assert.Equal(t, int64(2), c.Version)

		require.ErrorIs(t, carts.Save(ctx, stale), cart.ErrVersionConflict)
		require.ErrorIs(t, carts.Save(ctx, &cart.Cart{ID: "missing", Version: 1}), cart.ErrNotFound)

		got, err := carts.GetByID(ctx, "cart-1")
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.True(t, d("100").Equal(got.Items[0].SpecialPrice))
		assert.True(t, d("200").Equal(got.TotalPrice))
		assert.Equal(t, "cw", got.AppliedCouponID)
		assert.Equal(t, int64(2), got.Version)

		_, err = carts.GetByID(ctx, "missing")
		require.ErrorIs(t, err, cart.ErrNotFound)
	})
}
