package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cart-coupons/internal/catalog"
	"github.com/xenking/cart-coupons/internal/domain/coupon"
	"github.com/xenking/cart-coupons/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	minBloomSize  = 10_000
	progressEvery = 1_000
)

func main() {
	var (
		pattern     string
		databaseURL string
		linkPolicy  string
	)

	flag.StringVar(&pattern, "files", "data/coupons*.jsonl.gz", "glob of gzip-compressed JSON Lines coupon files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, pattern, databaseURL, policy); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, pattern, databaseURL string, policy coupon.LinkPolicy) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "glob files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}
	slices.Sort(files)

	// Pass 1: parse every file concurrently so a malformed record fails the
	// import before anything is written.
	slog.Info("pass 1: parsing files", slog.Int("files", len(files)))

	batches, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	coupons := postgres.NewCouponRepository(pool)

	// Pass 2: provision in file order, skipping identifiers that already
	// exist.
	slog.Info("pass 2: provisioning coupons")

	stats, err := importCoupons(ctx, batches, coupons, coupon.NewProvisioner(coupons, products, products, policy))
	if err != nil {
		return errors.Wrap(err, "import coupons")
	}

	slog.Info("import summary",
		slog.Int("created", stats.created),
		slog.Int("skipped", stats.skipped),
	)
	return nil
}

// parseFiles decodes each file on its own goroutine. Batches keep file order.
func parseFiles(ctx context.Context, files []string) ([][]coupon.Coupon, error) {
	batches := make([][]coupon.Coupon, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			var batch []coupon.Coupon
			err := streamGzFile(ctx, path, func(l catalog.Line) error {
				batch = append(batch, l.Coupon)
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "parse %s", path)
			}

			slog.Info("pass 1 complete",
				slog.String("file", filepath.Base(path)),
				slog.Int("coupons", len(batch)),
			)
			batches[i] = batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// streamGzFile opens a gzip-compressed JSON Lines file and calls fn for each
// coupon.
func streamGzFile(ctx context.Context, path string, fn func(catalog.Line) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return catalog.ReadLines(gz, func(l catalog.Line) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(l)
	})
}

type importStats struct {
	created int
	skipped int
}

// importCoupons provisions every coupon whose identifier is not stored yet.
//
// A bloom filter holds the known identifiers: a miss means the coupon is
// certainly new, a hit is confirmed against the repository. Coupons without
// an identifier are always new.
func importCoupons(
	ctx context.Context,
	batches [][]coupon.Coupon,
	repo coupon.Repository,
	provisioner *coupon.Provisioner,
) (importStats, error) {
	var stats importStats

	existing, err := repo.List(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "list coupons")
	}
	total := len(existing)
	for _, b := range batches {
		total += len(b)
	}

	known := bloom.NewWithEstimates(uint(max(total, minBloomSize)), bloomFPR)
	for _, c := range existing {
		known.AddString(c.ID)
	}

	for _, batch := range batches {
		for _, c := range batch {
			if c.ID != "" && known.TestString(c.ID) {
				_, err := repo.GetByID(ctx, c.ID)
				switch {
				case err == nil:
					stats.skipped++
					continue
				case !errors.Is(err, coupon.ErrNotFound):
					return stats, errors.Wrapf(err, "check coupon %s", c.ID)
				}
			}

			created, err := provisioner.Provision(ctx, c)
			if err != nil {
				return stats, errors.Wrapf(err, "provision coupon %s", c.ID)
			}
			known.AddString(created.ID)
			stats.created++

			if stats.created%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("created", stats.created),
					slog.Int("skipped", stats.skipped),
				)
			}
		}
	}
	return stats, nil
}
