package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-coupons/internal/catalog"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/domain/product"
	"github.com/xenking/cart-coupons/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
		linkPolicy  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to the products and coupons JSON file")
	flag.StringVar(&linkPolicy, "link-policy", "all", "which target products a coupon is linked to: all or first")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	policy, err := coupon.ParseLinkPolicy(linkPolicy)
	if err != nil {
		slog.Error("invalid link policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, policy); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string, policy coupon.LinkPolicy) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	f, err := os.Open(catalogFile)
	if err != nil {
		return errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	doc, err := catalog.ReadFile(f)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	coupons := postgres.NewCouponRepository(pool)

	return seed(ctx, doc,
		product.NewService(products),
		coupon.NewProvisioner(coupons, products, products, policy),
	)
}

// seed creates products first so coupons can be provisioned against them.
// Re-running it upserts the same identifiers.
func seed(ctx context.Context, doc *catalog.File, products *product.Service, provisioner *coupon.Provisioner) error {
	slog.Info("upserting products", slog.Int("count", len(doc.Products)))

	for _, p := range doc.Products {
		created, err := products.Create(ctx, p.Domain())
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", created.ID), slog.String("name", created.Name))
	}

	slog.Info("provisioning coupons", slog.Int("count", len(doc.Coupons)))

	for _, c := range doc.Coupons {
		in, err := c.Domain()
		if err != nil {
			return errors.Wrapf(err, "coupon %s", c.ID)
		}
		created, err := provisioner.Provision(ctx, in)
		if err != nil {
			return errors.Wrapf(err, "provision coupon %s", c.ID)
		}

		slog.Info("provisioned coupon",
			slog.String("id", created.ID),
			slog.String("type", string(created.Type)),
			slog.String("name", created.Name),
		)
	}

	return nil
}
